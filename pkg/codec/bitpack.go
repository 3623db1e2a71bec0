package codec

import "fmt"

// PackedSize возвращает количество байт, необходимое для упаковки count
// кодовых слов по bits бит каждое (последний байт дополняется нулями).
func PackedSize(count, bits int) int {
	return (count*bits + 7) / 8
}

// Pack упаковывает кодовые слова в поток байт.
//
// Порядок бит: внутри байта слова размещаются начиная с младшего бита.
// Слово, пересекающее границу байта, отдает младшие биты текущему байту,
// а оставшиеся старшие биты следующему.
//
// bits должен быть в диапазоне [1, 8). Нарушение является ошибкой
// программиста и приводит к panic.
func Pack(words []uint8, bits int) []byte {
	dst := make([]byte, PackedSize(len(words), bits))
	PackInto(dst, words, bits)
	return dst
}

// PackInto упаковывает кодовые слова в dst и возвращает число записанных байт.
// dst должен вмещать PackedSize(len(words), bits) байт.
func PackInto(dst []byte, words []uint8, bits int) int {
	checkWidth(bits)
	n := PackedSize(len(words), bits)
	if len(dst) < n {
		panic(fmt.Sprintf("codec: буфер упаковки слишком мал: %d < %d", len(dst), n))
	}

	mask := uint32(1)<<bits - 1
	var acc uint32 // накопитель бит, младшие биты уходят первыми
	var filled int
	x := 0
	for _, w := range words {
		acc |= (uint32(w) & mask) << filled
		filled += bits
		for filled >= 8 {
			dst[x] = byte(acc)
			x++
			acc >>= 8
			filled -= 8
		}
	}
	if filled > 0 {
		dst[x] = byte(acc)
	}
	return n
}

// Unpack извлекает count кодовых слов шириной bits из data.
// Обратная операция к Pack.
func Unpack(data []byte, count, bits int) []uint8 {
	checkWidth(bits)
	n := PackedSize(count, bits)
	if len(data) < n {
		panic(fmt.Sprintf("codec: недостаточно данных для распаковки: %d < %d", len(data), n))
	}

	words := make([]uint8, count)
	mask := uint32(1)<<bits - 1
	var acc uint32
	var filled int
	x := 0
	for i := range words {
		for filled < bits {
			acc |= uint32(data[x]) << filled
			x++
			filled += 8
		}
		words[i] = uint8(acc & mask)
		acc >>= bits
		filled -= bits
	}
	return words
}

func checkWidth(bits int) {
	if bits < 1 || bits >= 8 {
		panic(fmt.Sprintf("codec: недопустимая ширина кодового слова %d бит", bits))
	}
}
