package controller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"carquote_backend/internal/middleware"
	"carquote_backend/internal/model"
	"carquote_backend/internal/service"
	"carquote_backend/pkg/database"
	"carquote_backend/pkg/email"
	"carquote_backend/pkg/report"
	"carquote_backend/pkg/utils/storage"

	"github.com/gofiber/fiber/v2"
)

var (
	quoteNotifier email.Notifier
	notifyTo      string
	reports       report.Generator = report.NewPDFGenerator()
	reportArchive ReportArchive
)

const notifyTimeout = 15 * time.Second

// ReportArchive stores a rendered report and returns where it can be fetched.
type ReportArchive interface {
	Upload(ctx context.Context, key string, body []byte) (string, error)
}

// InitReportArchive enables the archive endpoint. A nil archive disables it.
func InitReportArchive(archive ReportArchive) {
	reportArchive = archive
}

// InitQuoteController sets the optional quote notification target.
func InitQuoteController(notifier email.Notifier, to string) {
	quoteNotifier = notifier
	notifyTo = to
}

func CreateQuote(c *fiber.Ctx) error {
	input := new(service.RecordQuoteInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Invalid input")
	}

	db := database.GetDB()
	quote, err := service.RecordQuote(db, *input)
	if err != nil {
		return respondError(c, err)
	}

	if quoteNotifier != nil && notifyTo != "" {
		data := quoteNotification(quote)
		go sendQuoteNotification(quoteNotifier, notifyTo, quote.ID, data)
	}

	return c.Status(fiber.StatusCreated).JSON(quote)
}

// quoteNotification reads the session's quote stats as of this request.
func quoteNotification(quote *model.Quote) email.QuoteReceivedData {
	db := database.GetDB()
	data := email.QuoteReceivedData{
		SessionID:   quote.SessionID,
		OTDPrice:    quote.OTDPrice,
		AddOns:      quote.AddOns,
		Notes:       quote.Notes,
		ReceivedVia: string(quote.ReceivedVia),
	}
	if listing, err := service.GetListing(db, quote.ListingID); err == nil {
		data.DealerName = listing.DealerName
	}
	if session, err := service.GetSession(db, quote.SessionID); err == nil {
		data.Vehicle = vehicleName(session)
	}
	if stats, err := service.GetQuoteStats(db, quote.SessionID); err == nil && stats.Best != nil {
		data.BestPrice = stats.Best.OTDPrice
		data.IsBest = stats.Best.QuoteID == quote.ID
	}

	return data
}

func sendQuoteNotification(notifier email.Notifier, to string, quoteID uint, data email.QuoteReceivedData) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := notifier.SendQuoteReceived(ctx, to, data); err != nil {
		slog.Error("could not send quote notification", "quote_id", quoteID, "error", err)
	}
}

func GetQuote(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid quote ID")
	}
	quote, err := service.GetQuote(database.GetDB(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(quote)
}

func UpdateQuote(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid quote ID")
	}
	input := new(service.QuotePatch)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Invalid input")
	}

	quote, err := service.UpdateQuote(database.GetDB(), id, *input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(quote)
}

func DeleteQuote(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid quote ID")
	}
	if err := service.DeleteQuote(database.GetDB(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Quote deleted successfully",
	})
}

func GetSessionQuotes(c *fiber.Ctx) error {
	quotes, err := service.ListQuotesBySession(database.GetDB(), middleware.CurrentSession(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(quotes)
}

func GetQuoteStats(c *fiber.Ctx) error {
	stats, err := service.GetQuoteStats(database.GetDB(), middleware.CurrentSession(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetQuoteReport renders the session's quotes, best first, as a PDF.
func GetQuoteReport(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)

	pdf, err := renderQuoteReport(session, time.Now())
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="session-%d-quotes.pdf"`, session.ID))
	return c.Send(pdf)
}

// ArchiveQuoteReport renders the report and uploads it to the bucket.
func ArchiveQuoteReport(c *fiber.Ctx) error {
	if reportArchive == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Report archive is not configured",
		})
	}

	session := middleware.CurrentSession(c)
	now := time.Now()

	pdf, err := renderQuoteReport(session, now)
	if err != nil {
		return respondError(c, err)
	}

	key := storage.ReportKey(session.ID, vehicleName(session), now)
	url, err := reportArchive.Upload(c.UserContext(), key, pdf)
	if err != nil {
		slog.Error("report archive failed", "session_id", session.ID, "key", key, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not archive report",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key": key,
		"url": url,
	})
}

func renderQuoteReport(session *model.Session, at time.Time) ([]byte, error) {
	db := database.GetDB()

	quotes, err := service.ListQuotesBySession(db, session.ID)
	if err != nil {
		return nil, err
	}
	service.SortQuotesBest(quotes)

	rows := make([]report.QuoteRow, 0, len(quotes))
	for _, q := range quotes {
		row := report.QuoteRow{
			OTDPrice:    q.OTDPrice,
			ReceivedVia: string(q.ReceivedVia),
			AddOns:      q.AddOns,
			ReceivedAt:  q.CreatedAt,
		}
		if listing, err := service.GetListing(db, q.ListingID); err == nil {
			row.DealerName = listing.DealerName
			row.MSRP = listing.MSRP
		}
		rows = append(rows, row)
	}

	return reports.Generate(report.Comparison{
		Vehicle:     vehicleName(session),
		ZipCode:     session.ZipCode,
		Rows:        rows,
		GeneratedAt: at,
	})
}

func vehicleName(s *model.Session) string {
	parts := []string{fmt.Sprintf("%d", s.ModelYear())}
	parts = append(parts, s.VehicleMake(""), s.CarModel, s.Version)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
