package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/codebuildervaibhav/speech-align-viz/internal/watch"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Watcher", func() {
	var (
		dir    string
		target string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		target = filepath.Join(dir, "talk.srt")
		Expect(os.WriteFile(target, []byte("1"), 0644)).To(Succeed())
	})

	It("signals once per burst of writes to the file", func() {
		w, err := New(target, 50*time.Millisecond)
		Expect(err).ToNot(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		changes := w.Run(ctx)

		for i := 0; i < 3; i++ {
			Expect(os.WriteFile(target, []byte{byte('a' + i)}, 0644)).To(Succeed())
		}
		Eventually(changes, "2s").Should(Receive())
		Consistently(changes, "200ms").ShouldNot(Receive())
	})

	It("ignores other files in the directory", func() {
		w, err := New(target, 20*time.Millisecond)
		Expect(err).ToNot(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		changes := w.Run(ctx)

		Expect(os.WriteFile(filepath.Join(dir, "other.srt"), []byte("x"), 0644)).To(Succeed())
		Consistently(changes, "200ms").ShouldNot(Receive())
	})

	It("closes the channel on cancel", func() {
		w, err := New(target, 0)
		Expect(err).ToNot(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		changes := w.Run(ctx)
		cancel()
		Eventually(changes).Should(BeClosed())
	})

	It("fails for a missing directory", func() {
		_, err := New(filepath.Join(dir, "nope", "x.srt"), 0)
		Expect(err).To(HaveOccurred())
	})
})
