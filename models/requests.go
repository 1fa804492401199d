package models

// Request payloads for the tutoring endpoints. Every request is scoped to a
// user; document-level operations additionally name the document.

type LoadDocumentRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	DocumentName   string `json:"document_name" binding:"required"`
	DocumentBase64 string `json:"document_base64" binding:"required"`
}

type PromptRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	Message      string `json:"message" binding:"required"`
	DocumentName string `json:"document_name"`
}

type SummaryRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	DocumentName string `json:"document_name" binding:"required"`
}

type FlashcardRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	DocumentName string `json:"document_name" binding:"required"`
}

type QuizRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	DocumentName string `json:"document_name" binding:"required"`
}

// ProcessRequest is the async ingestion request; processing is queued and
// the response reports QUEUED with a request ID.
type ProcessRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	DocumentName   string `json:"document_name" binding:"required"`
	DocumentBase64 string `json:"document_base64" binding:"required"`
}

type ProcessResponse struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}
