package station

import (
	"errors"

	"github.com/roach88/intake/internal/ledger"
	"github.com/roach88/intake/internal/session"
)

// Level is the severity of a Notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// NoticeCode categorizes a Notice.
type NoticeCode string

const (
	NoticeNotFound      NoticeCode = "NOT_FOUND"
	NoticeUnauthorized  NoticeCode = "UNAUTHORIZED"
	NoticePersistence   NoticeCode = "PERSISTENCE"
	NoticeValidation    NoticeCode = "VALIDATION"
	NoticeDuplicate     NoticeCode = "DUPLICATE"
	NoticeNoCatalog     NoticeCode = "NO_CATALOG"
	NoticeCatalogError  NoticeCode = "CATALOG_ERROR"
	NoticeCatalogLoaded NoticeCode = "CATALOG_LOADED"
	NoticeGranted       NoticeCode = "GRANTED"
	NoticeDenied        NoticeCode = "DENIED"
	NoticeBusy          NoticeCode = "BUSY"
	NoticePending       NoticeCode = "PENDING_RECEIPTS"
	NoticeSaved         NoticeCode = "SAVED"
	NoticeFailed        NoticeCode = "FAILED"
)

// Notice is an operator-facing message.
type Notice struct {
	Level   Level      `json:"level"`
	Code    NoticeCode `json:"code"`
	Message string     `json:"message"`
}

// noticeFor classifies err. Unknown errors become LevelError/NoticeFailed.
func noticeFor(err error) Notice {
	n := Notice{Level: LevelError, Code: NoticeFailed, Message: err.Error()}
	switch {
	case ledger.IsValidationError(err):
		n.Level, n.Code = LevelError, NoticeValidation
	case errors.Is(err, ledger.ErrPersistence):
		n.Level, n.Code = LevelWarn, NoticePersistence
		n.Message = "saved in memory only: " + err.Error()
	case errors.Is(err, ledger.ErrUnauthorized), errors.Is(err, session.ErrRotationDenied):
		n.Level, n.Code = LevelError, NoticeUnauthorized
	case errors.Is(err, session.ErrDenied), errors.Is(err, session.ErrEmptyPassphrase),
		errors.Is(err, session.ErrNotProvisioned):
		n.Level, n.Code = LevelError, NoticeDenied
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ErrNoMatch), errors.Is(err, ErrNoResult):
		n.Level, n.Code = LevelInfo, NoticeNotFound
	case errors.Is(err, ErrBusy):
		n.Level, n.Code = LevelInfo, NoticeBusy
	case errors.Is(err, ErrNoCatalogFile):
		n.Level, n.Code = LevelInfo, NoticeNoCatalog
	case IsCatalogLoadError(err):
		n.Level, n.Code = LevelError, NoticeCatalogError
	}
	return n
}
