package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/soiree/soiree/core"
	"github.com/soiree/soiree/service/invitation"
)

// 1x1 transparent GIF. Served unconditionally so the pixel leaks nothing
// about token validity.
const pixelGIF64 = "R0lGODlhAQABAPAAAAAAAAAAACH5BAEAAAAALAAAAAABAAEAAAICRAEAOw=="

var pixelGIF = func() []byte {
	bs, err := base64.StdEncoding.DecodeString(pixelGIF64)
	if err != nil {
		panic(err)
	}

	return bs
}()

// InviteOpen serves the tracking pixel and marks the invitation as opened.
func InviteOpen(fn core.InviteOpenFunc) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		fn(namespaceFromContext(ctx), mux.Vars(r)["token"])

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "image/gif")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pixelGIF)
	}
}

// InviteAnswer handles the one-click answer links embedded in the email. A
// browser GET is redirected to the RSVP page, a POST gets the outcome as
// JSON.
func InviteAnswer(
	fn core.InviteRespondFunc,
	baseURL string,
	next invitation.Status,
) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		var (
			bearer = mux.Vars(r)["token"]
			ns     = namespaceFromContext(ctx)
		)

		res, err := fn(ns, bearer, next, nil, requestMeta(r))
		if err != nil {
			respondError(w, 0, err)
			return
		}

		if r.Method == "GET" {
			http.Redirect(
				w,
				r,
				fmt.Sprintf(
					"%s/rsvp/%s?status=%s",
					baseURL,
					bearer,
					res.Invitation.Status,
				),
				http.StatusSeeOther,
			)
			return
		}

		respondJSON(w, http.StatusOK, &payloadAnswer{res: res})
	}
}

// InviteRSVP handles the structured answer a guest submits from the RSVP
// page.
func InviteRSVP(fn core.InviteRespondFunc) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		var (
			bearer = mux.Vars(r)["token"]
			ns     = namespaceFromContext(ctx)
			p      = payloadRSVP{}
		)

		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			respondError(w, 0, wrapError(ErrBadRequest, "error in rsvp payload"))
			return
		}

		next := invitation.StatusDeclined
		if p.Attending {
			next = invitation.StatusConfirmed
		}

		res, err := fn(ns, bearer, next, &invitation.Response{
			Attending:   p.Attending,
			Comment:     p.Comment,
			GuestsCount: p.GuestsCount,
		}, requestMeta(r))
		if err != nil {
			respondError(w, 0, err)
			return
		}

		respondJSON(w, http.StatusOK, &payloadAnswer{res: res})
	}
}

func requestMeta(r *http.Request) core.RequestMeta {
	return core.RequestMeta{
		IP:        clientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

type payloadAnswer struct {
	res *core.RSVPResult
}

func (p *payloadAnswer) MarshalJSON() ([]byte, error) {
	f := struct {
		Duplicate   bool   `json:"duplicate"`
		GuestsCount int    `json:"guests_count"`
		OK          bool   `json:"ok"`
		Status      string `json:"status"`
	}{
		Duplicate: p.res.Duplicate,
		OK:        true,
		Status:    string(p.res.Invitation.Status),
	}

	if p.res.Invitation.Response != nil {
		f.GuestsCount = p.res.Invitation.Response.GuestsCount
	}

	return json.Marshal(&f)
}

type payloadRSVP struct {
	Attending   bool   `json:"attending"`
	Comment     string `json:"comment"`
	GuestsCount int    `json:"guests_count"`
}
