package domain

import "strings"

// ExtractionStatus represents the lifecycle of one pipeline run. A record is
// created as processing and transitions exactly once, to completed or failed.
type ExtractionStatus string

const (
	StatusProcessing ExtractionStatus = "processing"
	StatusCompleted  ExtractionStatus = "completed"
	StatusFailed     ExtractionStatus = "failed"
)

// StageOutcome classifies how a pipeline stage ended.
type StageOutcome string

const (
	StageOK       StageOutcome = "ok"
	StageDegraded StageOutcome = "degraded"
	StageFatal    StageOutcome = "fatal"
)

// Pipeline stage names, in execution order.
const (
	StageTextExtraction = "text_extraction"
	StageHeader         = "header"
	StageFinancial      = "financial"
	StageLineItems      = "line_items"
	StageValidation     = "validation"
)

// UserRole defines the role hierarchy.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleMember UserRole = "member"
)

// FileType represents the allowed upload types.
type FileType string

const (
	FileTypePDF FileType = "pdf"
)

// AllowedContentTypes maps MIME content types to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf": FileTypePDF,
}

// FileTypeFromName resolves a FileType from a file name's extension.
func FileTypeFromName(name string) (FileType, bool) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return "", false
	}
	ft, ok := AllowedExtensions[strings.ToLower(name[idx+1:])]
	return ft, ok
}
