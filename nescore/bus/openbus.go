package bus

// OpenBus holds the two data bus latches. External is the last byte seen on
// the cartridge-facing bus; Internal is the last byte on the 2A03's own data
// path, which differs from External only after reads of internal registers
// such as $4015.
//
// There is no analog decay: an undriven read returns the last driven byte.
type OpenBus struct {
	External uint8
	Internal uint8
}

// Sample returns the external latch.
func (o OpenBus) Sample() uint8 {
	return o.External
}

// InternalSample returns the internal latch.
func (o OpenBus) InternalSample() uint8 {
	return o.Internal
}

// Set updates one latch.
func (o *OpenBus) Set(value uint8, internal bool) {
	if internal {
		o.Internal = value
	} else {
		o.External = value
	}
}

// drive latches a value that travelled over the external bus. The CPU sees
// it too, so both latches follow.
func (o *OpenBus) drive(value uint8) {
	o.External = value
	o.Internal = value
}
