package observerproto

// Version is the observer protocol version.
const Version = "1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeHello     = "HELLO"
	TypeFrame     = "FRAME"
)

// Client -> Server. First message on the observer WS connection; it can be
// re-sent to change settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Empty means every world.
	WorldIDs []string `json:"world_ids,omitempty"`
	// Send at most one frame per world every EveryTicks ticks.
	EveryTicks int  `json:"every_ticks,omitempty"`
	Balance    bool `json:"balance,omitempty"`
}

// HTTP response for GET /observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	RunID           string      `json:"run_id"`
	Worlds          []WorldInfo `json:"worlds"`
}

type WorldInfo struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	NLev   int    `json:"nlev"`
	Seed   uint64 `json:"seed"`
	Tick   uint64 `json:"tick"`
}

// Server -> Client. Sent once after a valid SUBSCRIBE.
type HelloMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	RunID           string      `json:"run_id"`
	Worlds          []WorldInfo `json:"worlds"`
}

// Server -> Client. The newest grid of one world. Slow clients skip frames
// rather than queue them.
//
// Kin holds one entry per cell in index order (row-major, x fastest): 0 for
// an empty slot, otherwise a color key for the cell's coarsest lineage id.
// Balance, when requested, is quantized to 0..255; multiply by BalanceScale
// for an approximate stockpile.
type FrameMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	WorldID         string `json:"world_id"`
	Tick            uint64 `json:"tick"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`

	Encoding     string  `json:"encoding"`
	Kin          string  `json:"kin"`
	Balance      string  `json:"balance,omitempty"`
	BalanceScale float32 `json:"balance_scale,omitempty"`
}
