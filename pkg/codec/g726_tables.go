package codec

// Таблицы эталонной реализации ITU-T G.726 (Sun Microsystems).
// Значения не выводятся аналитически и должны совпадать побитно.

// rateTable описывает квантователь и коэффициенты адаптации одной скорости.
type rateTable struct {
	bits   int   // ширина кодового слова
	qtab   []int // пороги квантователя (нормализованный логарифм)
	dqln   []int // логарифм восстановленной разности по коду
	witab  []int // множитель масштаба W(I)
	fitab  []int // функция F(I) для оценки энергии
	dqMask int   // маска модуля dq при восстановлении сигнала
}

// G.726-16 (2 бита)
var table16 = rateTable{
	bits:   2,
	qtab:   []int{261},
	dqln:   []int{116, 365, 365, 116},
	witab:  []int{-704, 14048, 14048, -704},
	fitab:  []int{0, 0xE00, 0xE00, 0},
	dqMask: 0x3FFF,
}

// G.726-24 (3 бита)
var table24 = rateTable{
	bits:   3,
	qtab:   []int{8, 218, 331},
	dqln:   []int{-2048, 135, 273, 373, 373, 273, 135, -2048},
	witab:  []int{-128, 960, 4384, 18624, 18624, 4384, 960, -128},
	fitab:  []int{0, 0x200, 0x400, 0xE00, 0xE00, 0x400, 0x200, 0},
	dqMask: 0x3FFF,
}

// G.726-32 (4 бита, бывший G.721). W(I) хранится уже умноженным на 32.
var table32 = rateTable{
	bits: 4,
	qtab: []int{-124, 80, 178, 246, 300, 349, 400},
	dqln: []int{-2048, 4, 135, 213, 273, 323, 373, 425,
		425, 373, 323, 273, 213, 135, 4, -2048},
	witab: []int{-12 << 5, 18 << 5, 41 << 5, 64 << 5, 112 << 5, 198 << 5, 355 << 5, 1122 << 5,
		1122 << 5, 355 << 5, 198 << 5, 112 << 5, 64 << 5, 41 << 5, 18 << 5, -12 << 5},
	fitab: []int{0, 0, 0, 0x200, 0x200, 0x200, 0x600, 0xE00,
		0xE00, 0x600, 0x200, 0x200, 0x200, 0, 0, 0},
	dqMask: 0x3FFF,
}

// G.726-40 (5 бит)
var table40 = rateTable{
	bits: 5,
	qtab: []int{-122, -16, 68, 139, 198, 250, 298, 339,
		378, 413, 445, 475, 502, 528, 553},
	dqln: []int{-2048, -66, 28, 104, 169, 224, 274, 318,
		358, 395, 429, 459, 488, 514, 539, 566,
		566, 539, 514, 488, 459, 429, 395, 358,
		318, 274, 224, 169, 104, 28, -66, -2048},
	witab: []int{448, 448, 768, 1248, 1280, 1312, 1856, 3200,
		4512, 5728, 7008, 8960, 11456, 14080, 16928, 22272,
		22272, 16928, 14080, 11456, 8960, 7008, 5728, 4512,
		3200, 1856, 1312, 1280, 1248, 768, 448, 448},
	fitab: []int{0, 0, 0, 0, 0, 0x200, 0x200, 0x200,
		0x200, 0x200, 0x400, 0x600, 0x800, 0xA00, 0xC00, 0xC00,
		0xC00, 0xC00, 0xA00, 0x800, 0x600, 0x400, 0x200, 0x200,
		0x200, 0x200, 0x200, 0, 0, 0, 0, 0},
	dqMask: 0x7FFF,
}

// power2 степени двойки для вычисления логарифма
var power2 = [15]int{1, 2, 4, 8, 0x10, 0x20, 0x40, 0x80,
	0x100, 0x200, 0x400, 0x800, 0x1000, 0x2000, 0x4000}

func tableFor(rate Rate) *rateTable {
	switch rate {
	case Rate16:
		return &table16
	case Rate24:
		return &table24
	case Rate32:
		return &table32
	case Rate40:
		return &table40
	default:
		return nil
	}
}
