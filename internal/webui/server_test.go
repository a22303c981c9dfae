package webui_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"mediadash/internal/aggregate"
	"mediadash/internal/narrator"
	"mediadash/internal/session"
	"mediadash/internal/webui"
)

const sample = "Date,Engagements,Platform,Sentiment,Media Type,Location\n" +
	"2024-01-01,10,Twitter,Positive,Text,Jakarta\n" +
	"2024-01-02,5,Instagram,Negative,Image,Bandung\n" +
	"2024-01-03,20,Twitter,Negative,Video,Jakarta\n"

// client replays the session cookie the way a browser would.
type client struct {
	handler http.Handler
	cookies []*http.Cookie
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	if set := w.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return w
}

func (c *client) upload(path, name, body string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	Expect(err).NotTo(HaveOccurred())
	_, _ = fw.Write([]byte(body))
	Expect(mw.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func decodeView(w *httptest.ResponseRecorder) session.View {
	var v session.View
	Expect(json.Unmarshal(w.Body.Bytes(), &v)).To(Succeed())
	return v
}

var _ = Describe("Server", func() {
	var (
		c     *client
		calls int
		reply func() (string, error)
	)

	BeforeEach(func() {
		calls = 0
		reply = func() (string, error) { return "- post more on Twitter", nil }
		store := session.NewStore(session.Options{
			Narrator: narrator.Func(func(context.Context, aggregate.Facts) (string, error) {
				calls++
				return reply()
			}),
			Provider: "fake",
		})
		srv := webui.NewServer(webui.Config{MaxUploadBytes: 1 << 20}, store)
		c = &client{handler: srv.Handler()}
	})

	Describe("GET /healthz", func() {
		It("reports ok", func() {
			w := c.get("/healthz")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"ok"`))
		})
	})

	Describe("GET /", func() {
		It("starts a session and asks for an upload", func() {
			w := c.get("/")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("Upload a CSV"))
			Expect(c.cookies).NotTo(BeEmpty())
			Expect(c.cookies[0].Name).To(Equal("mediadash_session"))
		})
	})

	Describe("GET /api/view", func() {
		It("returns 409 before any upload", func() {
			w := c.get("/api/view")
			Expect(w.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("POST /upload", func() {
		It("redirects to the dashboard and renders the charts", func() {
			w := c.upload("/upload", "mentions.csv", sample)
			Expect(w.Code).To(Equal(http.StatusSeeOther))

			w = c.get("/")
			Expect(w.Code).To(Equal(http.StatusOK))
			body := w.Body.String()
			Expect(body).To(ContainSubstring("mentions.csv: 3 of 3 rows kept"))
			Expect(body).To(ContainSubstring("Platform engagements"))
			Expect(body).To(ContainSubstring(`name="media_type"`))
			Expect(body).To(ContainSubstring(`value="2024-01-01"`))
		})

		It("rejects a file without required columns with 422 and keeps the previous dataset", func() {
			Expect(c.upload("/upload", "good.csv", sample).Code).To(Equal(http.StatusSeeOther))

			w := c.upload("/upload", "bad.csv", "Platform\nTwitter\n")
			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(w.Body.String()).To(ContainSubstring("missing required column(s): Date, Engagements"))
			Expect(w.Body.String()).To(ContainSubstring("good.csv"))
		})

		It("rejects malformed CSV with 422", func() {
			w := c.upload("/upload", "broken.csv", "Date,Engagements\n2024-01-01,1,extra\n")
			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("rejects a request without a file", func() {
			w := c.post("/upload", url.Values{})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/filters", func() {
		BeforeEach(func() {
			Expect(c.upload("/api/upload", "mentions.csv", sample).Code).To(Equal(http.StatusOK))
		})

		It("narrows the view", func() {
			w := c.post("/api/filters", url.Values{"platform": {"Twitter"}})
			Expect(w.Code).To(Equal(http.StatusOK))
			v := decodeView(w)
			Expect(v.Rows).To(Equal(2))
			Expect(v.Charts.Platforms).To(Equal([]aggregate.Total{{Label: "Twitter", Engagements: 30}}))

			v = decodeView(c.get("/api/view"))
			Expect(v.Rows).To(Equal(2))
		})

		It("rejects an inverted range with 422 and keeps the controls", func() {
			w := c.post("/api/filters", url.Values{"start": {"2024-01-03"}, "end": {"2024-01-01"}})
			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
			v := decodeView(w)
			Expect(v.Invalid).NotTo(BeEmpty())
			Expect(v.Charts.Empty()).To(BeTrue())
			Expect(v.Controls).NotTo(BeEmpty())

			Expect(c.get("/api/view").Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("rejects a malformed date with 422", func() {
			w := c.post("/api/filters", url.Values{"start": {"01/02/2024"}})
			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("selects the blank category through its option value", func() {
			Expect(c.upload("/api/upload", "blanks.csv", sample+"2024-01-04,7,Twitter,Neutral,Text,\n").Code).To(Equal(http.StatusOK))
			Expect(c.get("/").Body.String()).To(ContainSubstring(`<option value="(unspecified)">(unspecified)</option>`))

			w := c.post("/api/filters", url.Values{"location": {"(unspecified)"}})
			Expect(w.Code).To(Equal(http.StatusOK))
			v := decodeView(w)
			Expect(v.Rows).To(Equal(1))
			Expect(v.Charts.Platforms).To(Equal([]aggregate.Total{{Label: "Twitter", Engagements: 7}}))
		})

		It("reports the no data state as an empty view", func() {
			w := c.post("/api/filters", url.Values{"start": {"2030-01-01"}})
			v := decodeView(w)
			Expect(v.Invalid).To(BeEmpty())
			Expect(v.NoData()).To(BeTrue())
		})
	})

	Describe("POST /filters", func() {
		It("shows the validation message near the date controls", func() {
			c.upload("/upload", "mentions.csv", sample)
			w := c.post("/filters", url.Values{"start": {"2024-01-03"}, "end": {"2024-01-01"}})
			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(w.Body.String()).To(ContainSubstring("invalid Date filter"))
			Expect(w.Body.String()).NotTo(ContainSubstring("Platform engagements"))
		})
	})

	Describe("POST /api/summary", func() {
		It("returns the narrator text verbatim", func() {
			c.upload("/api/upload", "mentions.csv", sample)
			w := c.post("/api/summary", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("- post more on Twitter"))
			Expect(calls).To(Equal(1))
		})

		It("turns a narrator failure into fallback text", func() {
			reply = func() (string, error) { return "", errors.New("quota exceeded") }
			c.upload("/api/upload", "mentions.csv", sample)
			w := c.post("/api/summary", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			var got struct {
				Text string `json:"text"`
				OK   bool   `json:"ok"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &got)).To(Succeed())
			Expect(got.OK).To(BeFalse())
			Expect(got.Text).To(HavePrefix(narrator.FailurePrefix))
			Expect(got.Text).To(ContainSubstring("quota exceeded"))
		})

		It("is not called while rendering the page", func() {
			c.upload("/upload", "mentions.csv", sample)
			c.get("/")
			Expect(calls).To(BeZero())
		})
	})

	Describe("sessions", func() {
		It("keeps visitors isolated", func() {
			c.upload("/api/upload", "mentions.csv", sample)
			other := &client{handler: c.handler}
			Expect(other.get("/api/view").Code).To(Equal(http.StatusConflict))
			Expect(c.get("/api/view").Code).To(Equal(http.StatusOK))
		})
	})
})

var _ = Describe("upload size limit", func() {
	It("answers 413 when the body exceeds the cap", func() {
		srv := webui.NewServer(webui.Config{MaxUploadBytes: 64}, session.NewStore(session.Options{}))
		c := &client{handler: srv.Handler()}
		w := c.upload("/api/upload", "big.csv", sample+strings.Repeat("2024-01-01,1,X,Y,Z,W\n", 20))
		Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
	})
})

var _ = Describe("metrics route", func() {
	It("mounts the configured handler", func() {
		h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("# metrics")) })
		srv := webui.NewServer(webui.Config{Metrics: h}, session.NewStore(session.Options{}))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("# metrics"))
	})
})
