package i2c

// Flag is a status bit of the two-wire controller.
type Flag int

const (
	FlagBusy       Flag = iota // SCL or SDA held low
	FlagAckFailure             // AF: the addressed device answered with NAK
	FlagTxEmpty                // TXE: data register can take another byte
)

// Event is a combination of status bits the controller reports after a
// state transition.
type Event int

const (
	EventMasterModeSelect        Event = iota // start condition accepted
	EventTransmitterModeSelected              // write address acknowledged
	EventReceiverModeSelected                 // read address acknowledged
	EventByteTransmitted                      // data byte shifted out and acknowledged
	EventByteReceived                         // data register holds a received byte
)

// Peripheral is the register surface of a two-wire master controller. The
// engine only ever polls it; none of the methods may block.
type Peripheral interface {
	Flag(f Flag) bool
	ClearFlag(f Flag)
	CheckEvent(e Event) bool
	GenerateStart()
	GenerateStop()
	WriteData(b byte)
	ReadData() byte
	// SetAck controls whether received bytes are acknowledged.
	SetAck(enable bool)
}
