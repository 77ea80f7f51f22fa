package xep

// Register names understood by the XEP firmware. The client treats all
// of them uniformly except the down-converter aliases, which also
// switch the session's frame decode mode.
const (
	RegRxWait      = "rx_wait"
	RegFrameStart  = "frame_start"
	RegFrameEnd    = "frame_end"
	RegDDCEnable   = "ddc_en"
	RegDownConvert = "DownConvert" // legacy alias for RegDDCEnable
	RegTxRegion    = "tx_region"
	RegTxPower     = "tx_power"
)

// samplersPerFrameVar is the firmware variable holding the scalar
// sample count per frame. It is re-read after every register write
// because register changes can alter frame geometry.
const samplersPerFrameVar = "SamplersPerFrame"
