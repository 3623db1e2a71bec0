package codec

// floatNegZero представление "отрицательного нуля" (0xFC20) во внутреннем
// плавающем формате G.726
const floatNegZero int16 = -0x3E0

// State адаптивное состояние ADPCM кодера или декодера G.726.
//
// Экземпляр принадлежит ровно одному кодеру или декодеру и обновляется
// строго один раз на каждый обработанный отсчет. Разделять State между
// потоками разных вызовов нельзя.
type State struct {
	YL  int32    // шаг квантователя в установившемся режиме (locked)
	YU  int16    // шаг квантователя в неустановившемся режиме (unlocked)
	DMS int16    // краткосрочная оценка энергии
	DML int16    // долгосрочная оценка энергии
	AP  int16    // коэффициент скорости адаптации между YL и YU
	A   [2]int16 // коэффициенты полюсов предсказателя
	B   [6]int16 // коэффициенты нулей предсказателя
	PK  [2]int16 // знаки двух предыдущих частично восстановленных отсчетов
	DQ  [6]int16 // 6 последних квантованных разностей во внутреннем плавающем формате
	SR  [2]int16 // 2 последних восстановленных отсчета во внутреннем плавающем формате
	TD  bool     // задержанный детектор тона
}

// NewState возвращает состояние в начальной точке стандарта
func NewState() State {
	var s State
	s.Reset()
	return s
}

// Reset возвращает состояние к начальным значениям
func (s *State) Reset() {
	*s = State{
		YL: 34816,
		YU: 544,
		SR: [2]int16{32, 32},
		DQ: [6]int16{32, 32, 32, 32, 32, 32},
	}
}

// s16 усечение до 16 бит со знаком
func s16(v int) int {
	return int(int16(v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// quan возвращает индекс первого элемента table, большего val
func quan(val int, table []int) int {
	for i, t := range table {
		if val < t {
			return i
		}
	}
	return len(table)
}

// fmult умножает коэффициент предсказателя an на отсчет srn,
// заданный во внутреннем плавающем формате (4 бита экспоненты, 6 бит мантиссы).
func fmult(an, srn int) int {
	anmag := an
	if an <= 0 {
		anmag = (-an) & 0x1FFF
	}
	anexp := quan(anmag, power2[:]) - 6

	anmant := 32
	if anmag != 0 {
		if anexp >= 0 {
			anmant = anmag >> anexp
		} else {
			anmant = anmag << -anexp
		}
	}

	wanexp := anexp + ((srn >> 6) & 0xF) - 13
	wanmant := (anmant*(srn&0o77) + 0x30) >> 4

	var retval int
	if wanexp >= 0 {
		retval = (wanmant << wanexp) & 0x7FFF
	} else {
		retval = wanmant >> -wanexp
	}

	if (an ^ srn) < 0 {
		return -retval
	}
	return retval
}

// predictorZero вклад шестиполюсной (нулевой) части предсказателя
func (s *State) predictorZero() int {
	sezi := 0
	for i := range s.B {
		sezi += fmult(int(s.B[i])>>2, int(s.DQ[i]))
	}
	return sezi
}

// predictorPole вклад двухполюсной части предсказателя
func (s *State) predictorPole() int {
	return fmult(int(s.A[1])>>2, int(s.SR[1])) + fmult(int(s.A[0])>>2, int(s.SR[0]))
}

// estimate возвращает оценку нулевой части sez и оценку сигнала se
func (s *State) estimate() (sez, se int) {
	sezi := s16(s.predictorZero())
	sez = sezi >> 1
	se = s16(sezi+s.predictorPole()) >> 1
	return sez, se
}

// stepSize вычисляет шаг квантователя из YL, YU и AP
func (s *State) stepSize() int {
	if s.AP >= 256 {
		return int(s.YU)
	}

	y := int(s.YL >> 6)
	dif := int(s.YU) - y
	al := int(s.AP) >> 2
	if dif > 0 {
		y += (dif * al) >> 6
	} else if dif < 0 {
		y += (dif*al + 0x3F) >> 6
	}
	return y
}

// quantize квантует разность d с шагом y по таблице скорости
func quantize(d, y int, qtab []int) int {
	dqm := abs(d)
	exp := quan(dqm>>1, power2[:])
	mant := ((dqm << 7) >> exp) & 0x7F
	dl := (exp << 7) + mant
	dln := dl - (y >> 2)

	i := quan(dln, qtab)
	size := len(qtab)
	if d < 0 {
		return (size << 1) + 1 - i
	}
	if i == 0 {
		// дополнение до единицы для нуля (ревизия 1988 года)
		return (size << 1) + 1
	}
	return i
}

// reconstruct восстанавливает квантованную разность из логарифма dqln.
// Отрицательный результат представлен как модуль минус 0x8000.
func reconstruct(sign bool, dqln, y int) int {
	dql := s16(dqln + (y >> 2))

	if dql < 0 {
		if sign {
			return -0x8000
		}
		return 0
	}

	dex := (dql >> 7) & 15
	dqt := 128 + (dql & 127)
	dq := (dqt << 7) >> (14 - dex)
	if sign {
		return dq - 0x8000
	}
	return dq
}

// toFloat переводит значение в 4-битную экспоненту и 6-битную мантиссу.
func toFloat(mag int, negative bool) int16 {
	exp := quan(mag, power2[:])
	v := (exp << 6) + ((mag << 6) >> exp)
	if negative {
		v -= 0x400
	}
	return int16(v)
}

// update продвигает адаптивное состояние после кодирования или
// декодирования одного отсчета. Вызывается одинаково кодером и декодером.
func (s *State) update(t *rateTable, y, wi, fi, dq, sr, dqsez int) {
	pk0 := 0
	if dqsez < 0 {
		pk0 = 1
	}
	mag := dq & 0x7FFF

	// TRANS: детектор переходов
	ylint := int(s.YL >> 15)
	ylfrac := int(s.YL>>10) & 0x1F
	thr1 := (32 + ylfrac) << ylint
	thr2 := thr1
	if ylint > 9 {
		thr2 = 31 << 10
	}
	dqthr := (thr2 + (thr2 >> 1)) >> 1
	tr := s.TD && mag > dqthr

	// FUNCTW, FILTD, LIMB: шаг в неустановившемся режиме
	yu := s16(y + ((wi - y) >> 5))
	if yu < 544 {
		yu = 544
	} else if yu > 5120 {
		yu = 5120
	}
	s.YU = int16(yu)

	// FILTE: шаг в установившемся режиме
	s.YL += int32(yu) + ((-s.YL) >> 6)

	var a2p int
	if tr {
		// сигнал модема, сбрасываем предсказатель
		s.A = [2]int16{}
		s.B = [6]int16{}
	} else {
		pks1 := pk0 ^ int(s.PK[0])

		// UPA2
		a2p = int(s.A[1]) - int(s.A[1]>>7)
		if dqsez != 0 {
			fa1 := -int(s.A[0])
			if pks1 != 0 {
				fa1 = int(s.A[0])
			}
			switch {
			case fa1 < -8191:
				a2p -= 0x100
			case fa1 > 8191:
				a2p += 0xFF
			default:
				a2p += fa1 >> 5
			}

			// LIMC
			if pk0^int(s.PK[1]) != 0 {
				switch {
				case a2p <= -12160:
					a2p = -12288
				case a2p >= 12416:
					a2p = 12288
				default:
					a2p -= 0x80
				}
			} else {
				switch {
				case a2p <= -12416:
					a2p = -12288
				case a2p >= 12160:
					a2p = 12288
				default:
					a2p += 0x80
				}
			}
		}
		a2p = s16(a2p)
		s.A[1] = int16(a2p)

		// UPA1
		a0 := int(s.A[0]) - int(s.A[0]>>8)
		if dqsez != 0 {
			if pks1 == 0 {
				a0 += 192
			} else {
				a0 -= 192
			}
		}

		// LIMD
		a1ul := 15360 - a2p
		if a0 < -a1ul {
			a0 = -a1ul
		} else if a0 > a1ul {
			a0 = a1ul
		}
		s.A[0] = int16(a0)

		// UPB: коэффициенты нулей
		leak := 8
		if t.bits == 5 {
			leak = 9
		}
		for i := range s.B {
			b := int(s.B[i]) - int(s.B[i])>>leak
			if mag != 0 {
				if dq^int(s.DQ[i]) >= 0 {
					b += 128
				} else {
					b -= 128
				}
			}
			s.B[i] = int16(b)
		}
	}

	// FLOAT A: сдвиг истории квантованной разности
	copy(s.DQ[1:], s.DQ[:5])
	switch {
	case mag == 0 && dq >= 0:
		s.DQ[0] = 0x20
	case mag == 0:
		s.DQ[0] = floatNegZero
	default:
		s.DQ[0] = toFloat(mag, dq < 0)
	}

	// FLOAT B: сдвиг истории восстановленного сигнала
	s.SR[1] = s.SR[0]
	switch {
	case sr == 0:
		s.SR[0] = 0x20
	case sr > 0:
		s.SR[0] = toFloat(sr, false)
	case sr > -32768:
		s.SR[0] = toFloat(-sr, true)
	default:
		s.SR[0] = floatNegZero
	}

	// DELAY A
	s.PK[1] = s.PK[0]
	s.PK[0] = int16(pk0)

	// TONE
	s.TD = !tr && a2p < -11776

	// FILTA, FILTB: оценки энергии
	s.DMS += int16((fi - int(s.DMS)) >> 5)
	s.DML += int16(((fi << 2) - int(s.DML)) >> 7)

	// SUBTC: управление скоростью адаптации
	ap := int(s.AP)
	switch {
	case tr:
		ap = 256
	case y < 1536, s.TD, abs((int(s.DMS)<<2)-int(s.DML)) >= int(s.DML)>>3:
		ap += (0x200 - ap) >> 4
	default:
		ap += (-ap) >> 4
	}
	s.AP = int16(ap)
}

// reconstructSignal складывает оценку сигнала и квантованную разность
func reconstructSignal(se, dq, dqMask int) int {
	if dq < 0 {
		return s16(se - (dq & dqMask))
	}
	return s16(se + dq)
}

// Encoder кодер G.726 с собственным состоянием
type Encoder struct {
	rate  Rate
	table *rateTable
	state State
}

// NewEncoder создает кодер для скорости rate. Для неподдерживаемой
// скорости кодер ничего не кодирует (Supported() == false).
func NewEncoder(rate Rate) *Encoder {
	return &Encoder{rate: rate, table: tableFor(rate), state: NewState()}
}

// Supported сообщает, поддерживается ли скорость кодера
func (e *Encoder) Supported() bool { return e.table != nil }

// State возвращает копию текущего состояния
func (e *Encoder) State() State { return e.state }

// Encode кодирует один 16-битный отсчет и возвращает кодовое слово
func (e *Encoder) Encode(sample int16) uint8 {
	t := e.table
	if t == nil {
		return 0
	}
	s := &e.state

	sl := int(sample) >> 2 // 14-битный динамический диапазон
	sez, se := s.estimate()
	d := s16(sl - se)

	y := s.stepSize()
	i := quantize(d, y, t.qtab)
	if t.bits == 2 && i == 3 && d >= 0 {
		// квантователь 16 кбит/с дает только три уровня, четвертый
		// получаем для положительной разности в нулевой зоне
		i = 0
	}

	sign := i&(1<<(t.bits-1)) != 0
	dq := s16(reconstruct(sign, t.dqln[i], y))
	sr := reconstructSignal(se, dq, t.dqMask)
	dqsez := s16(sr + sez - se)

	s.update(t, y, t.witab[i], t.fitab[i], dq, sr, dqsez)
	return uint8(i)
}

// Decoder декодер G.726 с собственным состоянием
type Decoder struct {
	rate  Rate
	table *rateTable
	state State
}

// NewDecoder создает декодер для скорости rate
func NewDecoder(rate Rate) *Decoder {
	return &Decoder{rate: rate, table: tableFor(rate), state: NewState()}
}

// Supported сообщает, поддерживается ли скорость декодера
func (d *Decoder) Supported() bool { return d.table != nil }

// State возвращает копию текущего состояния
func (d *Decoder) State() State { return d.state }

// Decode восстанавливает 16-битный отсчет из кодового слова
func (d *Decoder) Decode(code uint8) int16 {
	t := d.table
	if t == nil {
		return 0
	}
	s := &d.state

	i := int(code) & (1<<t.bits - 1)
	sez, se := s.estimate()
	y := s.stepSize()

	sign := i&(1<<(t.bits-1)) != 0
	dq := s16(reconstruct(sign, t.dqln[i], y))
	sr := reconstructSignal(se, dq, t.dqMask)
	dqsez := s16(sr - se + sez)

	s.update(t, y, t.witab[i], t.fitab[i], dq, sr, dqsez)
	return int16(sr << 2)
}

// g726Codec реализует Codec для G.726. Кодер и декодер держат
// независимые экземпляры состояния.
type g726Codec struct {
	rate Rate
	enc  *Encoder
	dec  *Decoder
}

func newG726(rate Rate) *g726Codec {
	return &g726Codec{rate: rate, enc: NewEncoder(rate), dec: NewDecoder(rate)}
}

func (c *g726Codec) Kind() Kind      { return KindG726 }
func (c *g726Codec) Rate() Rate      { return c.rate }
func (c *g726Codec) Name() string    { return "G726-" + c.rate.String() }
func (c *g726Codec) Supported() bool { return c.enc.Supported() }

// PayloadType возвращает динамический RTP payload type для скорости
func (c *g726Codec) PayloadType() uint8 {
	switch c.rate {
	case Rate16:
		return PayloadTypeG726_16
	case Rate24:
		return PayloadTypeG726_24
	case Rate32:
		return PayloadTypeG726_32
	default:
		return PayloadTypeG726_40
	}
}

// FrameSize размер полезной нагрузки кадра в байтах (0 для неподдерживаемой скорости)
func (c *g726Codec) FrameSize() int {
	if !c.Supported() {
		return 0
	}
	return PackedSize(SamplesPerFrame, c.enc.table.bits)
}

// EncodeFrame кодирует кадр и упаковывает кодовые слова.
// Для неподдерживаемой скорости возвращает пустую нагрузку.
func (c *g726Codec) EncodeFrame(samples []int16) ([]byte, error) {
	if !c.Supported() {
		return []byte{}, nil
	}
	if len(samples) != SamplesPerFrame {
		return nil, newFrameSizeError(c.Name(), "samples", SamplesPerFrame, len(samples))
	}

	codes := make([]uint8, len(samples))
	for i, s := range samples {
		codes[i] = c.enc.Encode(s)
	}
	return Pack(codes, c.enc.table.bits), nil
}

// DecodeFrame распаковывает и декодирует кадр.
// Для неподдерживаемой скорости возвращает пустой набор отсчетов.
func (c *g726Codec) DecodeFrame(payload []byte) ([]int16, error) {
	if !c.Supported() {
		return []int16{}, nil
	}
	if len(payload) != c.FrameSize() {
		return nil, newFrameSizeError(c.Name(), "payload", c.FrameSize(), len(payload))
	}

	codes := Unpack(payload, SamplesPerFrame, c.dec.table.bits)
	out := make([]int16, len(codes))
	for i, code := range codes {
		out[i] = c.dec.Decode(code)
	}
	return out, nil
}
