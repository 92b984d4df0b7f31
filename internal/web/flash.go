package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	flashCookie = "flash"
	flashKey    = "flashes"
)

// Flash categories
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// AddFlash queues a message. It is shown by the current request if it renders
// a page, or by the next one after a redirect.
func AddFlash(c *gin.Context, category, message string) {
	pending := append(queued(c), Flash{Category: category, Message: message})
	c.Set(flashKey, pending)
	writeFlashCookie(c, pending)
}

// PopFlashes returns the messages carried over from the previous request plus
// those queued during this one, and clears the cookie.
func PopFlashes(c *gin.Context) []Flash {
	var out []Flash
	if raw, err := c.Cookie(flashCookie); err == nil && raw != "" {
		out = append(out, decodeFlashes(raw)...)
	}
	out = append(out, queued(c)...)
	c.Set(flashKey, []Flash(nil))

	if len(out) > 0 {
		setFlashCookie(c, "", -1)
	}
	return out
}

func queued(c *gin.Context) []Flash {
	if v, ok := c.Get(flashKey); ok {
		if flashes, ok := v.([]Flash); ok {
			return flashes
		}
	}
	return nil
}

func writeFlashCookie(c *gin.Context, flashes []Flash) {
	raw, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	setFlashCookie(c, base64.RawURLEncoding.EncodeToString(raw), 0)
}

func setFlashCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, value, maxAge, "/", "", c.Request.TLS != nil, true)
}

// decodeFlashes drops malformed cookies
func decodeFlashes(raw string) []Flash {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil
	}
	return flashes
}
