// Package waterfeetest provides an in-memory stand-in for the billing site
// that behaves like the real ASP.NET form: tokens are single use, the session
// cookie has to be sent back and results are rendered as a list.
package waterfeetest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

const sessionCookie = "ASP.NET_SessionId"

// Submission is a POST received by the site.
type Submission struct {
	Form    url.Values
	Header  http.Header
	Session string
}

type Site struct {
	Server *httptest.Server

	mutex sync.Mutex
	// items rendered in the result list, keyed by "{year}/{month}"
	items map[string][]string
	// ids of the hidden inputs left out of the form page
	omitTokens map[string]bool
	omitList   bool
	postStatus int
	delay      time.Duration

	gets        int
	issued      map[string]bool
	submissions []Submission
}

func NewSite() *Site {
	s := &Site{
		items:      map[string][]string{},
		omitTokens: map[string]bool{},
		issued:     map[string]bool{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

func (s *Site) Close() {
	s.Server.Close()
}

// Endpoint is the url of the form, the path mirrors the real site.
func (s *Site) Endpoint() string {
	return s.Server.URL + "/fee/waterfee.aspx"
}

func (s *Site) SetItems(window string, items ...string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.items[window] = items
}

func (s *Site) OmitToken(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.omitTokens[id] = true
}

func (s *Site) OmitList(omit bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.omitList = omit
}

// FailPosts makes every submission answer with `status`, 0 restores normal
// behavior.
func (s *Site) FailPosts(status int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.postStatus = status
}

// SetDelay delays every response.
func (s *Site) SetDelay(delay time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.delay = delay
}

func (s *Site) Gets() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.gets
}

func (s *Site) Submissions() []Submission {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]Submission(nil), s.submissions...)
}

func (s *Site) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	delay := s.delay
	s.mutex.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	switch r.Method {
	case http.MethodGet:
		s.serveForm(w, r)
	case http.MethodPost:
		s.serveResult(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Site) serveForm(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	s.gets++
	n := s.gets
	viewState := fmt.Sprintf("VS%d", n)
	s.issued[viewState] = true
	omit := map[string]bool{}
	for id := range s.omitTokens {
		omit[id] = true
	}
	s.mutex.Unlock()

	if _, err := r.Cookie(sessionCookie); err != nil {
		http.SetCookie(w, &http.Cookie{
			Name:  sessionCookie,
			Value: fmt.Sprintf("session-%d", n),
			Path:  "/",
		})
	}

	tokens := []struct{ id, value string }{
		{"__VIEWSTATE", viewState},
		{"__VIEWSTATEGENERATOR", fmt.Sprintf("VSG%d", n)},
		{"__EVENTVALIDATION", fmt.Sprintf("EV%d", n)},
	}
	var inputs strings.Builder
	for _, token := range tokens {
		if omit[token.id] {
			continue
		}
		fmt.Fprintf(
			&inputs,
			"<input type=\"hidden\" name=\"%s\" id=\"%s\" value=\"%s\" />\n",
			token.id, token.id, token.value,
		)
	}

	writePage(w, inputs.String(), "")
}

func (s *Site) serveResult(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var session string
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		session = cookie.Value
	}

	s.mutex.Lock()
	s.submissions = append(s.submissions, Submission{
		Form:    r.PostForm,
		Header:  r.Header.Clone(),
		Session: session,
	})
	status := s.postStatus
	omitList := s.omitList
	viewState := r.PostForm.Get("__VIEWSTATE")
	fresh := s.issued[viewState]
	delete(s.issued, viewState)
	items := s.items[r.PostForm.Get("startMonth")]
	s.mutex.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	// a reused or unknown view state fails validation like the real form does
	if !fresh || session == "" {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	list := ""
	if !omitList {
		var b strings.Builder
		b.WriteString("<ul id=\"listview\" data-role=\"listview\">\n")
		for _, item := range items {
			fmt.Fprintf(&b, "\t<li>%s</li>\n", html.EscapeString(item))
		}
		b.WriteString("</ul>\n")
		list = b.String()
	}
	writePage(w, "", list)
}

func writePage(w http.ResponseWriter, inputs, list string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8" /><title>水费查询</title></head>
<body>
<form method="post" action="./waterfee.aspx" id="form1">
<div class="aspNetHidden">
%s</div>
<input name="startMonth" type="text" />
<input name="endMonth" type="text" />
<input name="userCode" type="text" />
<input type="submit" name="btnSender" value="提交" />
</form>
%s</body>
</html>`, inputs, list)
}
