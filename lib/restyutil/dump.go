package restyutil

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// Dump renders every response the client receives and writes it to output,
// files are named `<sequence>-<method>.txt` so they sort in request order.
// If output is nil this is a no-op.
func Dump(client *resty.Client, output Output) {
	if output == nil {
		return
	}

	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&counter, 1)
		output.Write(
			fmt.Sprintf("%04d-%s.txt", id, strings.ToLower(res.Request.Method)),
			formatHttpMessage(res),
		)
		return nil
	})
}
