package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// flashCookie carries one notification across the redirect that follows a
// successful form post.
const flashCookie = "flash"

// Flash is a transient, dismissible notification.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func setFlash(w http.ResponseWriter, f *Flash) {
	if f == nil {
		return
	}
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads the pending notification, if any, and clears it so it is
// shown once.
func takeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	b, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(b, &f); err != nil || f.Message == "" {
		return nil
	}
	if f.Level != "success" {
		f.Level = "error"
	}
	return &f
}
