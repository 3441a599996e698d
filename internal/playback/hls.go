package playback

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// maxPlaylist caps an HLS playlist body.
const maxPlaylist = 4 << 20

var uriAttr = regexp.MustCompile(`URI="([^"]+)"`)

// relayPlaylist writes the playlist read from body with every segment,
// variant and key URI resolved against base, so the viewer can fetch them
// without going through the relay.
func relayPlaylist(w io.Writer, body io.Reader, base *url.URL) (int64, error) {
	out := bytebufferpool.Get()
	defer bytebufferpool.Put(out)

	sc := bufio.NewScanner(io.LimitReader(body, maxPlaylist))
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		out.WriteString(rewriteLine(sc.Text(), base))
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("read playlist: %w", err)
	}
	n, err := w.Write(out.B)
	if err != nil {
		return int64(n), fmt.Errorf("%w: %v", errWrite, err)
	}
	return int64(n), nil
}

func rewriteLine(line string, base *url.URL) string {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return line
	case strings.HasPrefix(trimmed, "#"):
		return uriAttr.ReplaceAllStringFunc(line, func(m string) string {
			ref := uriAttr.FindStringSubmatch(m)[1]
			return `URI="` + resolve(base, ref) + `"`
		})
	}
	return resolve(base, trimmed)
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
