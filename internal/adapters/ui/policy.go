package ui

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickClient
)

// Policy decides what happens to a UI connection whose queue is full.
type Policy interface {
	OnBackPressure(c *Client) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(*Client) BackpressureAction {
	return KickClient
}
