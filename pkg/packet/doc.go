// Package packet описывает голосовой пакет симулятора и его
// представление на проводе.
//
// Основной формат: 16 байт заголовка little-endian (id, index, sentTime)
// и закодированный кадр без дополнительного обрамления. Дополнительно
// пакет может передаваться в RTP (pion/rtp), где индекс и время
// отправки идут в одно-байтовом расширении заголовка.
package packet
