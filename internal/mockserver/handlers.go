package mockserver

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/iksnae/medisnap/internal"
	"github.com/iksnae/medisnap/internal/capture"
)

func (s *Server) interpret(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file selected")
	}

	mimeType := strings.ToLower(strings.TrimSpace(strings.SplitN(fh.Header.Get("Content-Type"), ";", 2)[0]))
	if fh.Size > internal.MaxDocumentSize {
		check := internal.ValidateAttributes(fh.Size, mimeType)
		return fiber.NewError(statusFor(check.Reason), check.Message)
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if mimeType == "" || mimeType == fiber.MIMEOctetStream {
		mimeType = capture.DetectMIME(data)
	}
	if check := internal.ValidateAttributes(int64(len(data)), mimeType); !check.Valid {
		return fiber.NewError(statusFor(check.Reason), check.Message)
	}

	language := c.FormValue("language", "en")
	res := demoResult(s.newID(), mimeType)
	res.Language = language
	res.CreatedAt = s.stamp()
	if err := s.store.SaveResult(c.UserContext(), res); err != nil {
		return err
	}
	internal.LogDebug("interpreted %s (%d bytes, %s) as %s", fh.Filename, len(data), mimeType, res.ID)
	return c.JSON(res)
}

func statusFor(kind internal.ErrorKind) int {
	switch kind {
	case internal.KindFileTooLarge:
		return fiber.StatusRequestEntityTooLarge
	case internal.KindUnsupportedType:
		return fiber.StatusUnsupportedMediaType
	}
	return fiber.StatusBadRequest
}

func (s *Server) show(c *fiber.Ctx) error {
	res, err := s.store.GetResult(c.UserContext(), c.Params("id"))
	if err != nil {
		return notFound(err)
	}
	return c.JSON(res)
}

func (s *Server) remove(c *fiber.Ctx) error {
	if err := s.store.DeleteResult(c.UserContext(), c.Params("id")); err != nil {
		return notFound(err)
	}
	return c.JSON(fiber.Map{"erc": 0, "msg": "deleted", "data": nil})
}

func notFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Interpretation not found")
	}
	return err
}

func (s *Server) list(c *fiber.Ctx) error {
	filter := ListFilter{
		Type:   c.Query("type"),
		Search: c.Query("search"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	}.normalized()

	items, total, err := s.store.ListResults(c.UserContext(), filter)
	if err != nil {
		return err
	}

	var next *string
	if filter.Page*filter.Limit < total {
		q := url.Values{}
		if filter.Type != "" {
			q.Set("type", filter.Type)
		}
		if filter.Search != "" {
			q.Set("search", filter.Search)
		}
		q.Set("page", strconv.Itoa(filter.Page+1))
		q.Set("limit", strconv.Itoa(filter.Limit))
		link := c.BaseURL() + c.Path() + "?" + q.Encode()
		next = &link
	}
	return c.JSON(fiber.Map{
		"erc":   0,
		"msg":   "ok",
		"total": total,
		"next":  next,
		"data":  items,
	})
}

func (s *Server) export(c *fiber.Ctx) error {
	format := c.Params("format")
	switch format {
	case "csv":
	case "pdf", "excel":
		return fiber.NewError(fiber.StatusNotImplemented, fmt.Sprintf("%s export is not available in demo mode", format))
	default:
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unsupported export format: %s", format))
	}

	res, err := s.store.GetResult(c.UserContext(), c.Params("id"))
	if err != nil {
		return notFound(err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="interpretation-%s.csv"`, res.ID))
	return writeCSV(c.Response().BodyWriter(), res)
}

// writeCSV flattens a result into one row per section and one per term.
func writeCSV(w io.Writer, res *internal.InterpretationResult) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"kind", "section", "original", "simplified", "term", "definition", "importance"},
		{"summary", "", "", res.Interpretation.Summary, "", "", ""},
	}
	for i, sec := range res.Interpretation.Sections {
		n := strconv.Itoa(i + 1)
		rows = append(rows, []string{"section", n, sec.Original, sec.Simplified, "", "", ""})
		for _, t := range sec.Terms {
			rows = append(rows, []string{"term", n, "", "", t.Term, t.Definition, string(t.Importance)})
		}
	}
	for _, warning := range res.Interpretation.Warnings {
		rows = append(rows, []string{"warning", "", "", warning, "", "", ""})
	}
	for _, step := range res.Interpretation.NextSteps {
		rows = append(rows, []string{"next_step", "", "", step, "", "", ""})
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

type askRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Language  string `json:"language"`
}

func (s *Server) ask(c *fiber.Ctx) error {
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.SessionID == "" || req.Question == "" {
		return fiber.NewError(fiber.StatusBadRequest, "session_id and question are required")
	}

	ctx := c.UserContext()
	res, err := s.store.GetResult(ctx, req.SessionID)
	if err != nil {
		return notFound(err)
	}
	if err := s.store.AppendMessage(ctx, res.ID, internal.HistoryEntry{
		ID: s.newID(), Role: string(internal.RoleUser), Content: req.Question, CreatedAt: s.stamp(),
	}); err != nil {
		return err
	}

	answer := demoAnswer(res, req.Question)
	if s.shape == ShapeEmpty {
		answer = ""
	}
	id := s.newID()
	if answer != "" {
		if err := s.store.AppendMessage(ctx, res.ID, internal.HistoryEntry{
			ID: id, Role: string(internal.RoleAssistant), Content: answer, CreatedAt: s.stamp(),
		}); err != nil {
			return err
		}
	}

	switch s.shape {
	case ShapeString:
		return c.JSON(answer)
	case ShapeEnvelope:
		return c.JSON(fiber.Map{"erc": 0, "msg": "ok", "data": fiber.Map{"answer": answer, "message_id": id}})
	}
	return c.JSON(fiber.Map{"answer": answer, "message_id": id})
}

func (s *Server) history(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if _, err := s.store.GetResult(ctx, c.Params("id")); err != nil {
		return notFound(err)
	}
	entries, err := s.store.History(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": entries})
}
