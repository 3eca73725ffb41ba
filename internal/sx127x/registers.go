package sx127x

// SX127x register addresses (LoRa page).
const (
	regFifo          = 0x00
	regOpMode        = 0x01
	regFrfMsb        = 0x06
	regFrfMid        = 0x07
	regFrfLsb        = 0x08
	regPaConfig      = 0x09
	regOcp           = 0x0B
	regLna           = 0x0C
	regFifoAddrPtr   = 0x0D
	regFifoTxBase    = 0x0E
	regFifoRxBase    = 0x0F
	regFifoRxCurrent = 0x10
	regIrqFlags      = 0x12
	regRxNbBytes     = 0x13
	regPktSnr        = 0x19
	regPktRssi       = 0x1A
	regModemConfig1  = 0x1D
	regModemConfig2  = 0x1E
	regPreambleMsb   = 0x20
	regPreambleLsb   = 0x21
	regPayloadLen    = 0x22
	regModemConfig3  = 0x26
	regSyncWord      = 0x39
	regDioMapping1   = 0x40
	regVersion       = 0x42
)

// chipVersion is the silicon revision reported by SX1276/77/78/79.
const chipVersion = 0x12

// RegOpMode mode bits. The LoRa page bit must accompany every mode write.
const (
	opModeSleep        = 0x00
	opModeStandby      = 0x01
	opModeTx           = 0x03
	opModeRxContinuous = 0x05
	opModeRxSingle     = 0x06
	opModeLoRa         = 0x80
)

// RegIrqFlags bits.
const (
	irqTxDone   = 0x08
	irqCrcError = 0x20
	irqRxDone   = 0x40
)

const (
	lnaBoostHF = 0x03 // RegLna LnaBoostHf=11
	agcAutoOn  = 0x04 // RegModemConfig3 AgcAutoOn
	crcOn      = 0x04 // RegModemConfig2 RxPayloadCrcOn
	paBoost    = 0x80 // RegPaConfig PaSelect=PA_BOOST
	ocp100mA   = 0x2B // RegOcp OcpOn, trim 100 mA
)

// rssiOffsetHF converts RegPktRssi to dBm on the HF port (868/915 MHz).
const rssiOffsetHF = 157

// fStepHz is the frequency synthesizer step: FXOSC / 2^19.
const fStepHz = 32_000_000.0 / (1 << 19) // ~61.035 Hz

// bwCodes maps the enumerated signal bandwidths (Hz) to RegModemConfig1
// codes. Anything else is a configuration error.
var bwCodes = map[int]uint8{
	7_800:   0,
	10_400:  1,
	15_600:  2,
	20_800:  3,
	31_250:  4,
	41_700:  5,
	62_500:  6,
	125_000: 7,
	250_000: 8,
	500_000: 9,
}
