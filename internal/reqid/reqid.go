// Package reqid derives short correlation ids so the log lines of one auth
// subrequest can be grepped together. Not unique in any cryptographic
// sense, just cheap and distinct enough for operators.
package reqid

import (
	"encoding/binary"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

var counter uint64

// Next returns a fresh id for r.
func Next(r *http.Request) string {
	d := xxhash.New()
	d.WriteString(r.RemoteAddr)
	d.WriteString(r.URL.RequestURI())
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], atomic.AddUint64(&counter, 1))
	d.Write(buf[:])
	return strconv.FormatUint(d.Sum64(), 16)
}
