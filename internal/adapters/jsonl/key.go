package jsonl

import (
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/sift/internal/core/domain"
)

// Key identifies an event. Events carrying their own id are keyed by it, so
// the same event copied into another file is recognised. Others are keyed by
// a hash of their location and content.
func Key(ev domain.SessionEvent, kc domain.KeyContext) string {
	if ev.ID != "" {
		return "id:" + ev.ID
	}

	d := xxhash.New()
	_, _ = d.WriteString(kc.Path)
	_, _ = d.Write([]byte{0})
	if kc.HasPosition {
		_, _ = d.Write(binary.LittleEndian.AppendUint64(nil, uint64(kc.Position)))
	}
	_, _ = d.Write(ev.Raw)

	return "xx:" + strconv.FormatUint(d.Sum64(), 16)
}
