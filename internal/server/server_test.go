package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	fastws "github.com/fasthttp/websocket"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/speech-align-viz/internal/config"
	"github.com/codebuildervaibhav/speech-align-viz/internal/figure"
	"github.com/codebuildervaibhav/speech-align-viz/internal/handlers"
	"github.com/codebuildervaibhav/speech-align-viz/internal/queue"
	. "github.com/codebuildervaibhav/speech-align-viz/internal/server"
	"github.com/codebuildervaibhav/speech-align-viz/internal/storage"
	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const sampleSRT = "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n2\n00:00:01,500 --> 00:00:03,000\nworld\n"

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func upload(app *fiber.App, target, filename string, content []byte) *http.Response {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	Expect(err).ToNot(HaveOccurred())
	_, err = part.Write(content)
	Expect(err).ToNot(HaveOccurred())
	Expect(mw.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := app.Test(req, -1)
	Expect(err).ToNot(HaveOccurred())
	return resp
}

func postJSON(app *fiber.App, target string, v any) *http.Response {
	data, err := json.Marshal(v)
	Expect(err).ToNot(HaveOccurred())
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	Expect(err).ToNot(HaveOccurred())
	return resp
}

func get(app *fiber.App, target string) *http.Response {
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	Expect(err).ToNot(HaveOccurred())
	return resp
}

func decode(resp *http.Response, v any) {
	defer resp.Body.Close()
	Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
}

func writeTone(path string) {
	f, err := os.Create(path)
	Expect(err).ToNot(HaveOccurred())
	defer f.Close()

	data := make([]int, 16000)
	for i := range data {
		data[i] = (i%80 - 40) * 300
	}
	enc := wav.NewEncoder(f, 8000, 16, 1, 1)
	Expect(enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           data,
		SourceBitDepth: 16,
	})).To(Succeed())
	Expect(enc.Close()).To(Succeed())
}

var _ = Describe("Server", func() {
	var (
		dir   string
		cfg   *config.Config
		cache *storage.Cache
		db    *storage.MetadataDB
		pool  *queue.WorkerPool
		logs  *LogBuffer
		app   *fiber.App
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		cfg = config.Default()
		cfg.Cache.Dir = filepath.Join(dir, "cache")
		cfg.Frontend.StaticDir = ""

		var err error
		cache, err = storage.NewCache(cfg.Cache.Dir)
		Expect(err).ToNot(HaveOccurred())
		db, err = storage.NewMetadataDB(cfg.DatabasePath())
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(db.Close)

		pool = queue.NewWorkerPool(1, cache, db, figure.Options{Height: 2, DPI: 50})
		pool.Start()
		DeferCleanup(pool.Stop)

		logs = NewLogBuffer(10)
		app = New(cfg, Deps{Cache: cache, DB: db, Pool: pool, Logs: logs})
	})

	It("reports health", func() {
		resp := get(app, "/api/health")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		var body map[string]string
		decode(resp, &body)
		Expect(body).To(Equal(map[string]string{"status": "ok"}))
	})

	Describe("transcript endpoints", func() {
		It("parses an uploaded transcript into the canonical list", func() {
			resp := upload(app, "/api/transcript/upload", "talk.srt", []byte(sampleSRT))
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(resp.Header.Get("X-Transcript-Format")).To(Equal("srt"))
			Expect(resp.Header.Get("X-Transcript-Skipped")).To(Equal("0"))

			var segs []types.Segment
			decode(resp, &segs)
			Expect(segs).To(Equal([]types.Segment{
				{Text: "Hello", StartTime: 0, EndTime: 1.5},
				{Text: "world", StartTime: 1.5, EndTime: 3},
			}))
			Expect(cache.Exists("talk.srt")).To(BeTrue())
		})

		It("records parsed transcripts in the history", func() {
			upload(app, "/api/transcript/upload", "talk.srt", []byte(sampleSRT)).Body.Close()

			var records []types.TranscriptRecord
			decode(get(app, "/api/transcripts?limit=5"), &records)
			Expect(records).To(HaveLen(1))
			Expect(records[0].Filename).To(Equal("talk.srt"))
			Expect(records[0].Format).To(Equal("srt"))
			Expect(records[0].SegmentCount).To(Equal(2))
			Expect(records[0].Source).To(Equal(types.SourceUpload))
		})

		It("rejects unsupported formats with a detail message", func() {
			resp := upload(app, "/api/transcript/upload", "notes.txt", []byte("hello"))
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			var body errorBody
			decode(resp, &body)
			Expect(body.Code).To(Equal("ERR_UNSUPPORTED_FORMAT"))
			Expect(body.Detail).To(Equal("failed to parse transcript: unsupported file format: .txt"))
			Expect(cache.Exists("notes.txt")).To(BeFalse())
		})

		It("rejects JSON with the wrong shape", func() {
			resp := upload(app, "/api/transcript/upload", "bad.json", []byte(`{"text":"x"}`))
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			var body errorBody
			decode(resp, &body)
			Expect(body.Code).To(Equal("ERR_FORMAT"))
			Expect(body.Detail).To(HavePrefix("failed to parse transcript: "))
		})

		It("does not cache transcripts that fail to parse", func() {
			resp := upload(app, "/api/transcript/upload", "broken.json", []byte(`[{"text":"x"}]`))
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			resp.Body.Close()
			Expect(cache.Exists("broken.json")).To(BeFalse())

			var records []types.TranscriptRecord
			decode(get(app, "/api/transcripts"), &records)
			Expect(records).To(BeEmpty())
		})

		It("requires a file", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/transcript/upload", nil)
			resp, err := app.Test(req, -1)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("parses a local transcript", func() {
			p := filepath.Join(dir, "local.vtt")
			Expect(os.WriteFile(p, []byte("WEBVTT\n\n00:01.000 --> 00:02.000\n<b>Hi</b> there\n"), 0644)).To(Succeed())

			resp := postJSON(app, "/api/transcript/local", map[string]string{"path": p})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var segs []types.Segment
			decode(resp, &segs)
			Expect(segs).To(Equal([]types.Segment{{Text: "Hi there", StartTime: 1, EndTime: 2}}))
		})

		It("returns 404 for a missing local transcript", func() {
			resp := postJSON(app, "/api/transcript/local", map[string]string{"path": filepath.Join(dir, "missing.srt")})
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))

			var body errorBody
			decode(resp, &body)
			Expect(body.Code).To(Equal("ERR_NOT_FOUND"))
		})

		It("rejects an empty path", func() {
			resp := postJSON(app, "/api/transcript/local", map[string]string{})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("audio endpoints", func() {
		It("caches uploads and serves them back", func() {
			resp := upload(app, "/api/audio/upload", "clip.wav", []byte("RIFF-not-really"))
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var body map[string]string
			decode(resp, &body)
			Expect(body).To(Equal(map[string]string{
				"url":      "/api/files/clip.wav",
				"filename": "clip.wav",
				"source":   "upload",
			}))

			served := get(app, body["url"])
			Expect(served.StatusCode).To(Equal(fiber.StatusOK))
			data, err := io.ReadAll(served.Body)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("RIFF-not-really"))
		})

		It("rejects non-audio uploads", func() {
			resp := upload(app, "/api/audio/upload", "notes.txt", []byte("hello"))
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 404 for unknown cached files", func() {
			Expect(get(app, "/api/files/nope.wav").StatusCode).To(Equal(fiber.StatusNotFound))
		})

		It("registers and streams local audio", func() {
			p := filepath.Join(dir, "local.wav")
			writeTone(p)

			resp := postJSON(app, "/api/audio/local", map[string]string{"path": p})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var body map[string]string
			decode(resp, &body)
			Expect(body["source"]).To(Equal("local"))
			Expect(body["filename"]).To(Equal("local.wav"))
			Expect(body["url"]).To(Equal("/api/stream_local?path=" + url.QueryEscape(p)))

			served := get(app, body["url"])
			Expect(served.StatusCode).To(Equal(fiber.StatusOK))
			Expect(served.Header.Get("Content-Type")).To(Equal("audio/wav"))
		})

		It("returns 404 for missing local audio", func() {
			resp := postJSON(app, "/api/audio/local", map[string]string{"path": filepath.Join(dir, "missing.wav")})
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
			Expect(get(app, "/api/stream_local?path="+url.QueryEscape(filepath.Join(dir, "missing.wav"))).StatusCode).
				To(Equal(fiber.StatusNotFound))
		})
	})

	Describe("figure endpoints", func() {
		It("renders a figure from local files", func() {
			audioPath := filepath.Join(dir, "tone.wav")
			writeTone(audioPath)
			srtPath := filepath.Join(dir, "tone.srt")
			Expect(os.WriteFile(srtPath, []byte(sampleSRT), 0644)).To(Succeed())

			resp := postJSON(app, "/api/figure", map[string]string{"audio": audioPath, "transcript": srtPath})
			Expect(resp.StatusCode).To(Equal(fiber.StatusAccepted))
			var created map[string]string
			decode(resp, &created)
			Expect(created["status"]).To(Equal(types.StatusQueued))
			id := created["job_id"]
			Expect(id).ToNot(BeEmpty())

			var status map[string]any
			Eventually(func() any {
				decode(get(app, "/api/figure/"+id), &status)
				return status["status"]
			}, "10s").Should(Equal(types.StatusCompleted))
			Expect(status["url"]).To(Equal("/api/files/" + id + ".png"))

			png := get(app, status["url"].(string))
			Expect(png.StatusCode).To(Equal(fiber.StatusOK))
		})

		It("resolves cached uploads by name", func() {
			audioPath := filepath.Join(dir, "tone.wav")
			writeTone(audioPath)
			data, err := os.ReadFile(audioPath)
			Expect(err).ToNot(HaveOccurred())
			upload(app, "/api/audio/upload", "cached.wav", data).Body.Close()
			upload(app, "/api/transcript/upload", "cached.srt", []byte(sampleSRT)).Body.Close()

			resp := postJSON(app, "/api/figure", map[string]string{"audio": "cached.wav", "transcript": "cached.srt"})
			Expect(resp.StatusCode).To(Equal(fiber.StatusAccepted))
		})

		It("returns 404 for missing inputs", func() {
			resp := postJSON(app, "/api/figure", map[string]string{"audio": "nope.wav", "transcript": "nope.srt"})
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})

		It("rejects unsupported transcripts before queueing", func() {
			audioPath := filepath.Join(dir, "tone.wav")
			writeTone(audioPath)
			txt := filepath.Join(dir, "notes.txt")
			Expect(os.WriteFile(txt, []byte("hi"), 0644)).To(Succeed())

			resp := postJSON(app, "/api/figure", map[string]string{"audio": audioPath, "transcript": txt})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			var body errorBody
			decode(resp, &body)
			Expect(body.Code).To(Equal("ERR_UNSUPPORTED_FORMAT"))
		})

		It("returns 404 for unknown jobs", func() {
			Expect(get(app, "/api/figure/unknown").StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})

	It("exposes buffered logs", func() {
		_, err := logs.Write([]byte("first\nsecond\n"))
		Expect(err).ToNot(HaveOccurred())

		var body map[string][]string
		decode(get(app, "/api/logs"), &body)
		Expect(body["logs"]).To(Equal([]string{"first", "second"}))
	})

	It("pushes the parsed transcript and again after the file changes", func() {
		p := filepath.Join(dir, "live.srt")
		Expect(os.WriteFile(p, []byte(sampleSRT), 0644)).To(Succeed())

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		go func() { _ = app.Listener(ln) }()
		DeferCleanup(func() { _ = app.Shutdown() })

		target := "ws://" + ln.Addr().String() + "/ws/transcript?path=" + url.QueryEscape(p)
		conn, _, err := fastws.DefaultDialer.Dial(target, nil)
		Expect(err).ToNot(HaveOccurred())
		defer conn.Close()
		Expect(conn.SetReadDeadline(time.Now().Add(10 * time.Second))).To(Succeed())

		var first handlers.TranscriptUpdate
		Expect(conn.ReadJSON(&first)).To(Succeed())
		Expect(first.Error).To(BeEmpty())
		Expect(first.Result).ToNot(BeNil())
		Expect(first.Segments).To(HaveLen(2))

		Expect(os.WriteFile(p, []byte("1\n00:00:00,000 --> 00:00:04,000\nrewritten\n"), 0644)).To(Succeed())

		// Editors may emit more than one event; wait for the new content
		for {
			var next handlers.TranscriptUpdate
			Expect(conn.ReadJSON(&next)).To(Succeed())
			if next.Result != nil && len(next.Segments) == 1 {
				Expect(next.Segments[0].Text).To(Equal("rewritten"))
				break
			}
		}
	})

	It("requires a websocket upgrade for transcript watching", func() {
		resp := get(app, "/ws/transcript?path="+url.QueryEscape(filepath.Join(dir, "x.srt")))
		Expect(resp.StatusCode).To(Equal(fiber.StatusUpgradeRequired))
	})

	It("answers unknown routes with the error body", func() {
		resp := get(app, "/api/nope")
		Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		var body errorBody
		decode(resp, &body)
		Expect(body.Code).To(Equal("ERR_NOT_FOUND"))
	})

	It("serves the frontend when configured", func() {
		static := filepath.Join(dir, "static")
		Expect(os.MkdirAll(static, 0755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>app</html>"), 0644)).To(Succeed())
		cfg.Frontend.StaticDir = static

		resp := get(New(cfg, Deps{Cache: cache}), "/")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		data, err := io.ReadAll(resp.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(strings.TrimSpace(string(data))).To(Equal("<html>app</html>"))
	})
})

var _ = Describe("LogBuffer", func() {
	It("keeps only the most recent lines", func() {
		lb := NewLogBuffer(3)
		for _, l := range []string{"a\n", "b\n", "c\nd\n", "e"} {
			_, err := lb.Write([]byte(l))
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(lb.Lines()).To(Equal([]string{"c", "d", "e"}))
	})
})
