// Package rtc manages the board's MCP7940N battery-backed clock: BCD
// register codec, weekday calculation, validity checks and the set-then-verify
// write protocol.
package rtc

import "fmt"

// EncodeBCD packs 0..99 into two BCD digits. Other values are a programming
// error and panic.
func EncodeBCD(v int) byte {
	if v < 0 || v > 99 {
		panic(fmt.Sprintf("rtc: %d cannot be encoded as two BCD digits", v))
	}
	return byte(v/10)<<4 | byte(v%10)
}

// DecodeBCD unpacks two BCD digits
func DecodeBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}
