package output

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/kx0101/scripttester/internal/session"
)

// Console prints session notifications as single coloured lines.
type Console struct {
	W io.Writer
}

func (c Console) Notify(level session.Level, msg string) {
	switch level {
	case session.LevelSuccess:
		fmt.Fprintf(c.W, "%s✓ %s%s\n", ColorGreen, msg, ColorReset)
	default:
		fmt.Fprintf(c.W, "%s✗ %s%s\n", ColorRed, msg, ColorReset)
	}
}

// DescribeURL breaks a script URL into the parts worth checking by eye.
func DescribeURL(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ColorRed + "Invalid URL format" + ColorReset
	}

	var sb strings.Builder
	sb.WriteString("URL Components:\n")
	sb.WriteString(fmt.Sprintf("  Protocol: %s:\n", u.Scheme))
	sb.WriteString(fmt.Sprintf("  Hostname: %s\n", u.Hostname()))
	sb.WriteString(fmt.Sprintf("  Pathname: %s\n", u.EscapedPath()))
	sb.WriteString(fmt.Sprintf("  Script ID: %s\n", scriptID(u.Path)))

	return sb.String()
}

// scriptID returns the segment after "/s/" in a macros URL, or the last path
// segment for anything else.
func scriptID(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == "s" && segments[i+1] != "" {
			return segments[i+1]
		}
	}

	if last := path.Base("/" + strings.Trim(p, "/")); last != "/" {
		return last
	}

	return "-"
}
