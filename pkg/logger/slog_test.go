package logger_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flavorsnap/ml-api/pkg/logger"
)

var _ = Describe("slog bridge", func() {
	var (
		log *logger.Logger
		sl  *slog.Logger
	)

	BeforeEach(func() {
		var err error
		log, err = logger.New(logger.Options{
			Name:    "flavorsnap",
			Dir:     filepath.Join(GinkgoT().TempDir(), "logs"),
			Console: io.Discard,
		})
		Expect(err).NotTo(HaveOccurred())
		sl = log.Slog()
	})

	AfterEach(func() {
		Expect(log.Close()).To(Succeed())
	})

	It("should map slog levels", func() {
		sl.Debug("d")
		sl.Warn("w")
		sl.Error("e")

		records := readRecords(log.Paths().General)
		Expect(records).To(HaveLen(3))
		Expect(records[0]["level"]).To(Equal("DEBUG"))
		Expect(records[1]["level"]).To(Equal("WARNING"))
		Expect(records[2]["level"]).To(Equal("ERROR"))
		Expect(readRecords(log.Paths().Errors)).To(HaveLen(1))
	})

	It("should log at CRITICAL through the custom level", func() {
		sl.Log(context.Background(), slog.Level(logger.LevelCritical), "fatal")

		Expect(readRecords(log.Paths().Errors)[0]["level"]).To(Equal("CRITICAL"))
	})

	It("should turn attributes into extra fields", func() {
		sl.Info("attrs",
			slog.String("endpoint", "/predict"),
			slog.Int("status", 200),
			slog.Any("err", errors.New("boom")),
			slog.Duration("took", time.Millisecond),
		)

		record := readRecords(log.Paths().General)[0]
		Expect(record["endpoint"]).To(Equal("/predict"))
		Expect(record["status"]).To(BeNumerically("==", 200))
		Expect(record["err"]).To(Equal("boom"))
		Expect(record["took"]).To(BeNumerically("==", time.Millisecond))
	})

	It("should flatten groups and keep bound attributes", func() {
		sl.With(slog.String("component", "metrics")).
			WithGroup("system").
			Info("grouped", slog.Float64("cpu", 12.5), slog.Group("memory", slog.Int("percent", 40)))

		record := readRecords(log.Paths().General)[0]
		Expect(record["component"]).To(Equal("metrics"))
		Expect(record["system.cpu"]).To(BeNumerically("==", 12.5))
		Expect(record["system.memory.percent"]).To(BeNumerically("==", 40))
	})

	It("should drop reserved keys", func() {
		sl.Info("reserved", slog.String("message", "spoofed"))

		Expect(readRecords(log.Paths().General)[0]["message"]).To(Equal("reserved"))
	})

	It("should capture the call site from the record", func() {
		sl.Info("where")

		Expect(readRecords(log.Paths().General)[0]["module"]).To(Equal("slog_test"))
	})

	It("should carry fields bound with With", func() {
		log.With(logger.Fields{"request_id": "r-9"}).Slog().Info("bound")

		Expect(readRecords(log.Paths().General)[0]["request_id"]).To(Equal("r-9"))
	})

	It("should report disabled once closed", func() {
		Expect(sl.Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())
		Expect(log.Close()).To(Succeed())
		Expect(sl.Enabled(context.Background(), slog.LevelError)).To(BeFalse())
	})
})
