package rtc

// Address is the MCP7940N's fixed I2C address.
const Address uint16 = 0x6F

const (
	regSeconds = 0x00
	regWeekday = 0x03
	regControl = 0x07
	timeRegs   = 7

	stBit      = 0x80 // seconds: oscillator start
	hour12Bit  = 0x40 // hours: 12 hour mode
	pmBit      = 0x20 // hours: PM in 12 hour mode
	oscRunBit  = 0x20 // weekday: oscillator running
	vbatEnBit  = 0x08 // weekday: battery backup enabled
	secondMask = 0x7F
	minuteMask = 0x7F
	hour24Mask = 0x3F
	hour12Mask = 0x1F
	wkdayMask  = 0x07
	dateMask   = 0x3F
	monthMask  = 0x1F // drops LPYR
)
