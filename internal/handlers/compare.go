package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"contractdiff/internal/diff"
	"contractdiff/internal/extract"
	"contractdiff/internal/llm"
	"contractdiff/internal/report"
	u "contractdiff/internal/utils"
	"contractdiff/internal/workers"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// CompareParams holds validated input for one comparison request.
type CompareParams struct {
	PDFData  []byte
	DocxData []byte
	Filename string
	Analysis bool
	LLMKey   string
}

// CompareService bundles configuration and dependencies for contract
// comparison requests.
type CompareService struct {
	Config  *u.Config
	Redis   *redis.Client
	Analyst *llm.Analyst

	poolMu  sync.Mutex
	pool    *workers.Pool
	poolErr error

	compareFn func(pdfData, docxData []byte, topN int) (*diff.Result, error)
}

// NewCompareService creates a new CompareService instance.
func NewCompareService(cfg u.Config, rdb *redis.Client) *CompareService {
	return &CompareService{
		Config:    &cfg,
		Redis:     rdb,
		Analyst:   llm.NewAnalyst(cfg),
		compareFn: compareDocuments,
	}
}

func (svc *CompareService) getPool() (*workers.Pool, error) {
	svc.poolMu.Lock()
	defer svc.poolMu.Unlock()

	if svc.Config.Compare.WorkerPoolSize <= 0 {
		return nil, nil
	}
	if svc.pool != nil {
		return svc.pool, nil
	}
	pool, err := workers.NewPool(svc.Config.Compare.WorkerPoolSize)
	if err != nil {
		svc.poolErr = err
		return nil, err
	}
	svc.pool = pool
	return svc.pool, nil
}

// HandleCompare generates the highlighted comparison DOCX or serves a cached
// copy.
func (svc *CompareService) HandleCompare(c *fiber.Ctx) error {
	params, err := validateAndExtractCompareParams(c, *svc.Config)
	if err != nil {
		return err
	}

	// A missing key must fail even when a cached report exists.
	if params.Analysis && params.LLMKey == "" {
		return fiber.NewError(fiber.StatusBadRequest, llm.ErrMissingAPIKey.Error())
	}

	cacheKey := computeReportCacheKey(params)

	if svc.Redis != nil && svc.Config.Cache.ReportCacheEnabled {
		if cached, err := getCachedReport(c, svc.Redis, cacheKey, params.Filename); err == nil && cached != nil {
			return c.Send(cached)
		}
	}

	result, err := svc.runComparison(c.Context(), params)
	if err != nil {
		return svc.comparisonError(err)
	}

	analysis := ""
	analysisFailed := false
	if params.Analysis {
		analysis, err = svc.Analyst.Analyze(c.Context(), params.LLMKey, result.Summary)
		if err != nil {
			if errors.Is(err, llm.ErrMissingAPIKey) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			// The comparison itself succeeded; ship the report without the
			// analysis section.
			analysisFailed = true
			u.Warn("LLM analysis failed", "error", err.Error())
		}
	}

	reportBuf, err := report.BuildReport(result.Segments, analysis)
	if err != nil {
		u.Error("Report generation failed", "error", err.Error())
		return fiber.NewError(fiber.StatusInternalServerError, "Report generation failed")
	}

	if len(reportBuf) > svc.Config.Limits.MaxReportBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Report exceeds allowed size")
	}

	// A degraded report (analysis requested but unavailable) must not occupy
	// the analysis-keyed cache slot for the whole TTL; the next request should
	// retry the LLM call.
	if svc.Redis != nil && svc.Config.Cache.ReportCacheEnabled && !analysisFailed {
		setCachedReport(c, svc.Redis, cacheKey, reportBuf, svc.Config.Cache.ReportCacheTTL)
	}

	requestID := c.Get("X-Request-ID")
	u.Info("Comparison report generated",
		"filename", params.Filename,
		"added", result.Summary.Counts.Added,
		"deleted", result.Summary.Counts.Deleted,
		"request_id", requestID)

	c.Set("Content-Type", docxMIME)
	c.Set("Content-Disposition", "attachment; filename="+params.Filename)
	return c.Send(reportBuf)
}

// SummaryResponse is the JSON body of /v1/compare/summary.
type SummaryResponse struct {
	Counts         diff.Counts      `json:"counts"`
	AddedTop       []diff.TermCount `json:"added_top"`
	DeletedTop     []diff.TermCount `json:"deleted_top"`
	ReplacedOldTop []diff.TermCount `json:"replaced_old_top"`
	ReplacedNewTop []diff.TermCount `json:"replaced_new_top"`
	Implications   []string         `json:"implications"`
	Analysis       string           `json:"analysis,omitempty"`
	AnalysisError  string           `json:"analysis_error,omitempty"`
}

// HandleSummary returns the comparison as JSON instead of a DOCX.
func (svc *CompareService) HandleSummary(c *fiber.Ctx) error {
	params, err := validateAndExtractCompareParams(c, *svc.Config)
	if err != nil {
		return err
	}

	result, err := svc.runComparison(c.Context(), params)
	if err != nil {
		return svc.comparisonError(err)
	}
	sum := result.Summary

	resp := SummaryResponse{
		Counts:         sum.Counts,
		AddedTop:       sum.AddedTop,
		DeletedTop:     sum.DeletedTop,
		ReplacedOldTop: sum.ReplacedOldTop,
		ReplacedNewTop: sum.ReplacedNewTop,
		Implications:   report.Implications(sum.ChangedTerms()),
	}

	if params.Analysis {
		analysis, err := svc.Analyst.Analyze(c.Context(), params.LLMKey, sum)
		if err != nil {
			if errors.Is(err, llm.ErrMissingAPIKey) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			u.Warn("LLM analysis failed", "error", err.Error())
			resp.AnalysisError = "analysis unavailable: " + err.Error()
		} else {
			resp.Analysis = analysis
		}
	}

	return c.JSON(resp)
}

// HandleWorkerStats exposes basic observability for the comparison worker
// pool.
func (svc *CompareService) HandleWorkerStats(c *fiber.Ctx) error {
	pool, err := svc.getPool()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Worker pool init failed: "+err.Error())
	}

	if pool == nil {
		return c.JSON(workers.Stats{})
	}
	return c.JSON(pool.Stats())
}

// runComparison executes the extract/diff pipeline under the worker pool and
// the configured timeout.
func (svc *CompareService) runComparison(ctx context.Context, params *CompareParams) (*diff.Result, error) {
	pool, err := svc.getPool()
	if err != nil {
		return nil, err
	}
	if pool != nil {
		acquireCtx, acquireCancel := context.WithTimeout(ctx, 5*time.Second)
		defer acquireCancel()
		if err := pool.Acquire(acquireCtx); err != nil {
			return nil, err
		}
	}

	timeout := time.Duration(svc.Config.Compare.TimeoutSecs) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		res *diff.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		// The slot stays held until the parse actually finishes; a timed-out
		// request abandons the wait, not the pool accounting.
		if pool != nil {
			defer pool.Release()
		}
		res, err := svc.compareFn(params.PDFData, params.DocxData, svc.Config.Compare.TopTerms)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-runCtx.Done():
		return nil, runCtx.Err()
	}
}

func compareDocuments(pdfData, docxData []byte, topN int) (*diff.Result, error) {
	pdfRes, err := extract.ExtractPDF(pdfData)
	if err != nil {
		return nil, err
	}
	docxText, err := extract.ExtractDocx(docxData)
	if err != nil {
		return nil, fmt.Errorf("original document: %w", err)
	}
	return diff.Compare(docxText, pdfRes.Text, topN), nil
}

// comparisonError maps pipeline errors onto HTTP statuses.
func (svc *CompareService) comparisonError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		u.Error("Comparison timeout", "timeout_secs", svc.Config.Compare.TimeoutSecs, "error", err.Error())
		return fiber.NewError(fiber.StatusRequestTimeout, "Comparison took too long")
	case errors.Is(err, extract.ErrNoPDFText):
		return fiber.NewError(fiber.StatusUnprocessableEntity,
			"PDF contains no extractable text; scanned documents need OCR before comparison")
	case errors.Is(err, extract.ErrNotPDF):
		return fiber.NewError(fiber.StatusBadRequest, "Uploaded file is not a PDF")
	case errors.Is(err, extract.ErrNoDocxText):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Original document contains no text")
	case errors.Is(err, workers.ErrPoolClosed):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Service is shutting down")
	default:
		u.Error("Comparison failed", "error", err.Error())
		return fiber.NewError(fiber.StatusBadRequest, "Comparison failed: "+err.Error())
	}
}

// validateAndExtractCompareParams validates the multipart upload and options.
func validateAndExtractCompareParams(c *fiber.Ctx, cfg u.Config) (*CompareParams, error) {
	pdfData, err := readUpload(c, "pdf", cfg.Limits.MaxPDFBytes)
	if err != nil {
		return nil, err
	}
	if !extract.IsPDF(pdfData) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Field 'pdf' is not a PDF document")
	}

	docxData, err := readUpload(c, "docx", cfg.Limits.MaxDocxBytes)
	if err != nil {
		return nil, err
	}
	// DOCX is a zip archive; check the PK signature.
	if len(docxData) < 4 || docxData[0] != 'P' || docxData[1] != 'K' {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Field 'docx' is not a Word document")
	}

	filename := c.FormValue("filename")
	if filename == "" {
		filename = "comparison.docx"
	} else {
		if !strings.HasSuffix(filename, ".docx") {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Filename must end with .docx")
		}
		if !filenamePattern.MatchString(filename) {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Filename contains invalid characters")
		}
	}

	analysis := false
	switch strings.ToLower(c.FormValue("analysis")) {
	case "", "0", "false", "no":
	case "1", "true", "yes":
		analysis = true
	default:
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid analysis flag: must be a boolean")
	}

	return &CompareParams{
		PDFData:  pdfData,
		DocxData: docxData,
		Filename: filename,
		Analysis: analysis,
		LLMKey:   c.FormValue("llm_api_key"),
	}, nil
}

func readUpload(c *fiber.Ctx, field string, maxBytes int) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Missing upload field '%s'", field))
	}
	if fh.Size > int64(maxBytes) {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("Upload '%s' exceeds %d bytes", field, maxBytes))
	}
	data, err := readMultipartFile(fh)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Cannot read upload '%s'", field))
	}
	if len(data) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Upload '%s' is empty", field))
	}
	return data, nil
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// computeReportCacheKey creates a SHA256-based cache key over both payloads
// and the options that change the report content.
func computeReportCacheKey(params *CompareParams) string {
	h := sha256.New()
	h.Write(params.PDFData)
	h.Write(params.DocxData)
	if params.Analysis {
		h.Write([]byte("analysis"))
	}
	return "reportcache:" + hex.EncodeToString(h.Sum(nil))
}

// getCachedReport attempts to retrieve a cached report from Redis.
func getCachedReport(c *fiber.Ctx, rdb *redis.Client, key, filename string) ([]byte, error) {
	ctxRedis, cancel := context.WithTimeout(c.Context(), 1*time.Second)
	defer cancel()

	cached, err := rdb.Get(ctxRedis, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		u.Warn("Redis read failed", "error", err)
		return nil, err
	}

	u.Info("Report cache hit", "key", key)
	c.Set("Content-Type", docxMIME)
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return cached, nil
}

// setCachedReport stores a generated report in Redis.
func setCachedReport(c *fiber.Ctx, rdb *redis.Client, key string, data []byte, ttl time.Duration) {
	ctxRedis, cancel := context.WithTimeout(c.Context(), 1*time.Second)
	defer cancel()

	if ttl <= 0 {
		ttl = 1 * time.Minute
	}

	if err := rdb.Set(ctxRedis, key, data, ttl).Err(); err != nil {
		u.Warn("Redis write failed", "error", err)
	}
}
