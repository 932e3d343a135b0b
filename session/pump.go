package session

import (
	"context"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/ltwin/communication-translator/iox"
	"github.com/ltwin/communication-translator/types"
)

// Msg is a message posted to the controller inbox by a pump or an export.
// Pass every received Msg to Controller.Handle.
type Msg interface {
	sessionID() string
}

type openedMsg struct{ id string }

type openFailedMsg struct {
	id  string
	err error
}

type chunkMsg struct {
	id   string
	data string
	// n is the number of body bytes read for this chunk.
	n int
}

// endMsg reports the end of the body. err is nil on a clean EOF.
type endMsg struct {
	id  string
	err error
}

type copiedMsg struct {
	target string
	err    error
}

func (m openedMsg) sessionID() string     { return m.id }
func (m openFailedMsg) sessionID() string { return m.id }
func (m chunkMsg) sessionID() string      { return m.id }
func (m endMsg) sessionID() string        { return m.id }
func (copiedMsg) sessionID() string       { return "" }

// pump opens the stream for one session and posts its body to the inbox in
// arrival order. It stops as soon as ctx is cancelled.
func (c *Controller) pump(ctx context.Context, id string, req types.TranslationRequest) {
	body, err := c.transport.OpenStream(ctx, req)
	if err != nil {
		c.post(ctx, openFailedMsg{id: id, err: err})
		return
	}
	defer iox.DiscardClose(body)
	// Unblock a pending Read when the session is superseded.
	stop := iox.CloseOnDone(ctx, body)
	defer stop()

	if !c.post(ctx, openedMsg{id: id}) {
		return
	}

	buf := make([]byte, c.chunkSize)
	var carry []byte
	for {
		n, err := body.Read(buf)
		if n > 0 {
			data := append(carry, buf[:n]...)
			cut := completeUTF8(data)
			carry = append([]byte(nil), data[cut:]...)
			if cut > 0 {
				if !c.post(ctx, chunkMsg{id: id, data: string(data[:cut]), n: n}) {
					return
				}
			} else if !c.post(ctx, chunkMsg{id: id, n: n}) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.post(ctx, endMsg{id: id, err: err})
				return
			}
			if len(carry) > 0 && !c.post(ctx, chunkMsg{id: id, data: string(carry)}) {
				return
			}
			c.post(ctx, endMsg{id: id})
			return
		}
	}
}

// post delivers m unless ctx is done first.
func (c *Controller) post(ctx context.Context, m Msg) bool {
	select {
	case c.inbox <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

// completeUTF8 returns the length of the longest prefix of b that does not
// end in the middle of a multi-byte rune.
func completeUTF8(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}
