package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/iksnae/medisnap/internal"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Submit uploads doc as multipart form data with its language.
func (c *Client) Submit(ctx context.Context, doc *internal.CapturedDocument, language string) (*internal.InterpretationResult, error) {
	if doc == nil {
		return nil, internal.NewError(internal.KindNoFileSelected, "submit", "No file selected", nil)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(doc.Name())))
	header.Set("Content-Type", doc.MIMEType())
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := io.Copy(part, doc.Reader()); err != nil {
		return nil, fmt.Errorf("copy document data: %w", err)
	}
	if language == "" {
		language = "en"
	}
	if err := writer.WriteField("language", language); err != nil {
		return nil, fmt.Errorf("write language field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint(nil, "interpret", ""), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	raw, err := c.send(req)
	if err != nil {
		return nil, failure(internal.KindSubmitFailed, "submit", "Failed to interpret document", err)
	}
	res, err := decodeResult(raw)
	if err != nil {
		return nil, failure(internal.KindSubmitFailed, "submit", "Failed to interpret document", err)
	}
	return res, nil
}

// FetchResult loads a result by id. Concurrent calls for the same id share
// one request. The shared request is detached from any single caller's ctx, so
// one caller giving up does not fail the others; each caller still returns
// as soon as its own ctx ends. The client timeout bounds the request.
func (c *Client) FetchResult(ctx context.Context, id string) (*internal.InterpretationResult, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.fetches.DoChan(id, func() (any, error) {
		raw, err := c.doJSON(shared, http.MethodGet, c.endpoint(nil, "interpret", id), nil)
		if err != nil {
			return nil, err
		}
		return decodeResult(raw)
	})

	select {
	case <-ctx.Done():
		return nil, failure(internal.KindFetchResultFailed, "fetch", "Failed to fetch interpretation", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, failure(internal.KindFetchResultFailed, "fetch", "Failed to fetch interpretation", r.Err)
		}
		return cloneResult(r.Val.(*internal.InterpretationResult)), nil
	}
}

// cloneResult deep-copies a result shared between callers.
func cloneResult(src *internal.InterpretationResult) *internal.InterpretationResult {
	res := *src
	in := src.Interpretation
	res.Interpretation.MedicalTerms = slices.Clone(in.MedicalTerms)
	res.Interpretation.Warnings = slices.Clone(in.Warnings)
	res.Interpretation.NextSteps = slices.Clone(in.NextSteps)
	if in.Sections != nil {
		res.Interpretation.Sections = make([]internal.Section, len(in.Sections))
		for i, sec := range in.Sections {
			sec.Terms = slices.Clone(sec.Terms)
			res.Interpretation.Sections[i] = sec
		}
	}
	return &res
}

func decodeResult(body []byte) (*internal.InterpretationResult, error) {
	data, _ := unwrap(body)
	var res internal.InterpretationResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode interpretation: %w", err)
	}
	res.ClampConfidence()
	return &res, nil
}

// ListParams filters List.
type ListParams struct {
	Type   string
	Search string
	Page   int
	Limit  int
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Type != "" {
		q.Set("type", p.Type)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

// ListPage is one page of past interpretations.
type ListPage struct {
	Items []internal.InterpretationResult
	Total int
	Next  string
}

// List returns past interpretations.
func (c *Client) List(ctx context.Context, params ListParams) (*ListPage, error) {
	raw, err := c.doJSON(ctx, http.MethodGet, c.endpoint(params.values(), "interpret"), nil)
	if err != nil {
		return nil, failure(internal.KindFetchResultFailed, "list", "Failed to fetch interpretations", err)
	}
	data, env := unwrap(raw)
	page := &ListPage{}
	if err := json.Unmarshal(data, &page.Items); err != nil {
		return nil, failure(internal.KindFetchResultFailed, "list", "Failed to fetch interpretations", fmt.Errorf("decode list: %w", err))
	}
	page.Total = len(page.Items)
	if env != nil {
		if env.Total != nil {
			page.Total = *env.Total
		}
		if env.Next != nil {
			page.Next = *env.Next
		}
	}
	for i := range page.Items {
		page.Items[i].ClampConfidence()
	}
	return page, nil
}

// Delete removes an interpretation and its chat thread.
func (c *Client) Delete(ctx context.Context, id string) error {
	if _, err := c.doJSON(ctx, http.MethodDelete, c.endpoint(nil, "interpret", id), nil); err != nil {
		return failure(internal.KindFetchResultFailed, "delete", "Failed to delete", err)
	}
	return nil
}

// ExportFormats lists the remote export formats.
var ExportFormats = []string{"pdf", "csv", "excel"}

// ExportExtension maps a remote export format to a file extension.
func ExportExtension(format string) string {
	if format == "excel" {
		return "xlsx"
	}
	return format
}

func validExportFormat(format string) bool {
	for _, f := range ExportFormats {
		if f == format {
			return true
		}
	}
	return false
}

// ExportURL is the download location of a rendered export.
func (c *Client) ExportURL(id, format string) string {
	return c.endpoint(nil, "interpret", id, "export", format)
}

// DownloadExport streams a rendered export into w and returns the bytes
// written.
func (c *Client) DownloadExport(ctx context.Context, id, format string, w io.Writer) (int64, error) {
	if !validExportFormat(format) {
		return 0, fmt.Errorf("unsupported export format: %s (supported: %s)", format, strings.Join(ExportFormats, ", "))
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.ExportURL(id, format), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "*/*")

	ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
	defer cancel()
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("download failed: %w", decodeAPIError(resp))
	}
	return io.Copy(w, resp.Body)
}
