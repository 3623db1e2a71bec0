// Package codec реализует речевые кодеки симулятора: G.711 μ-law и
// многоскоростной G.726 ADPCM (16, 24, 32 и 40 кбит/с).
//
// Кодеки работают кадрами по SamplesPerFrame 16-битных отсчетов (20 мс
// при 8 кГц). Кодовые слова G.726 упаковываются в байты функцией Pack
// начиная с младших бит.
//
// # Использование
//
//	c, err := codec.New(codec.KindG726, codec.Rate32)
//	if err != nil {
//	    return err
//	}
//	payload, err := c.EncodeFrame(frame) // 80 байт
//	samples, err := c.DecodeFrame(payload)
//
// Каждый Codec держит отдельные состояния кодера и декодера, поэтому
// один экземпляр обслуживает один поток и не разделяется между горутинами.
package codec
