package packet

import (
	"sync"
	"time"
)

// Clock источник времени отправки в секундах
type Clock interface {
	Now() float64
}

// SystemClock отсчитывает секунды реального времени с момента создания
type SystemClock struct {
	start time.Time
}

// NewSystemClock создает часы с нулем в текущий момент
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now возвращает секунды с момента создания часов
func (c *SystemClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// ManualClock часы модельного времени, продвигаются явно
type ManualClock struct {
	mu  sync.RWMutex
	now float64
}

// NewManualClock создает часы, показывающие start
func NewManualClock(start float64) *ManualClock {
	return &ManualClock{now: start}
}

// Now возвращает текущее модельное время
func (c *ManualClock) Now() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set устанавливает модельное время
func (c *ManualClock) Set(t float64) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance сдвигает модельное время на d секунд и возвращает новое значение
func (c *ManualClock) Advance(d float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}
