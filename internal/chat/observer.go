package chat

// Observer receives routing outcomes for instrumentation. Calls happen on the routing
// path and must not block.
type Observer interface {
	FrameHandled(frameType string)
	MessageStored(kind string, delivered bool)
	ErrorSent(code string)
}

type nopObserver struct{}

func (nopObserver) FrameHandled(string)        {}
func (nopObserver) MessageStored(string, bool) {}
func (nopObserver) ErrorSent(string)           {}
