package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"tutor-genai-service/internal/logger"
	"tutor-genai-service/internal/queue"
	"tutor-genai-service/models"
	"tutor-genai-service/services"
	"tutor-genai-service/utils"
)

// TutorDeps carries everything the tutoring handlers need. Enqueuer is nil
// when the task queue is not configured; /process then reports the queue as
// unavailable instead of failing silently.
type TutorDeps struct {
	Sessions *services.SessionManager
	Files    *services.FileStorage
	Enqueuer *asynq.Client
}

// SetupTutorRoutes registers the tutoring endpoints.
func SetupTutorRoutes(router *gin.Engine, deps TutorDeps) {
	session := router.Group("/session")
	{
		session.POST("/load", handleLoadDocument(deps))
		session.POST("/chat", handleChat(deps))
		session.POST("/summary", handleSummary(deps))
		session.POST("/flashcard", handleFlashcards(deps))
		session.POST("/quiz", handleQuiz(deps))
	}
	router.POST("/process", handleProcess(deps))
}

func handleLoadDocument(deps TutorDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoadDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
			return
		}

		session, err := deps.Sessions.GetOrCreate(c.Request.Context(), req.UserID)
		if err != nil {
			respondPipelineError(c, err)
			return
		}

		path, err := deps.Files.SaveDocument(req.DocumentName, req.DocumentBase64)
		if err != nil {
			utils.RespondWithBadRequest(c, "Could not decode document payload", err.Error())
			return
		}

		message, err := session.LoadDocument(c.Request.Context(), path, req.DocumentName)
		if err != nil {
			respondPipelineError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": message})
	}
}

func handleChat(deps TutorDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PromptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
			return
		}

		session, err := deps.Sessions.GetOrCreate(c.Request.Context(), req.UserID)
		if err != nil {
			respondPipelineError(c, err)
			return
		}

		answer, err := session.Prompt(c.Request.Context(), req.Message, req.DocumentName)
		if err != nil {
			respondPipelineError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"response": answer})
	}
}

func handleSummary(deps TutorDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SummaryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
			return
		}

		session, err := deps.Sessions.GetOrCreate(c.Request.Context(), req.UserID)
		if err != nil {
			respondPipelineError(c, err)
			return
		}

		summary, err := session.Summarize(c.Request.Context(), req.DocumentName)
		if err != nil {
			respondPipelineError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": summary})
	}
}

func handleFlashcards(deps TutorDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.FlashcardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
			return
		}

		session, err := deps.Sessions.GetOrCreate(c.Request.Context(), req.UserID)
		if err != nil {
			respondPipelineError(c, err)
			return
		}

		set, err := session.GenerateFlashcards(c.Request.Context(), req.DocumentName)
		if err != nil {
			// Artifact endpoints always return the collection field so
			// clients can render an empty state alongside the error.
			c.JSON(statusForError(err), gin.H{
				"flashcards": []models.Flashcard{},
				"error":      err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"flashcards": set.Flashcards})
	}
}

func handleQuiz(deps TutorDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.QuizRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
			return
		}

		session, err := deps.Sessions.GetOrCreate(c.Request.Context(), req.UserID)
		if err != nil {
			respondPipelineError(c, err)
			return
		}

		quiz, err := session.GenerateQuiz(c.Request.Context(), req.DocumentName)
		if err != nil {
			c.JSON(statusForError(err), gin.H{
				"questions": []models.QuizQuestion{},
				"error":     err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"questions": quiz.Questions})
	}
}

func handleProcess(deps TutorDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ProcessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
			return
		}
		if deps.Enqueuer == nil {
			utils.RespondWithError(c, http.StatusServiceUnavailable,
				"queue_unavailable", "Background processing is not configured", nil)
			return
		}

		path, err := deps.Files.SaveDocument(req.DocumentName, req.DocumentBase64)
		if err != nil {
			utils.RespondWithBadRequest(c, "Could not decode document payload", err.Error())
			return
		}

		task, err := queue.NewDocumentIngestTask(queue.DocumentIngestPayload{
			UserID:       req.UserID,
			DocumentName: req.DocumentName,
			Path:         path,
		})
		if err != nil {
			utils.RespondWithInternalError(c, "Could not build ingestion task", err.Error())
			return
		}

		info, err := deps.Enqueuer.Enqueue(task)
		if err != nil {
			utils.RespondWithInternalError(c, "Could not queue document for processing", err.Error())
			return
		}

		requestID := uuid.NewString()
		logger.Info("document queued for ingestion",
			"request_id", requestID,
			"task_id", info.ID,
			"user_id", req.UserID,
			"document", req.DocumentName)
		c.JSON(http.StatusAccepted, models.ProcessResponse{
			RequestID: requestID,
			Status:    "QUEUED",
			Message:   "Document queued for processing",
		})
	}
}

// respondPipelineError maps pipeline sentinels onto HTTP statuses with the
// standard error envelope.
func respondPipelineError(c *gin.Context, err error) {
	status := statusForError(err)
	code := "internal_error"
	switch {
	case errors.Is(err, utils.ErrNotFound):
		code = "not_found"
	case errors.Is(err, utils.ErrUnsupportedFormat):
		code = "unsupported_format"
	case errors.Is(err, utils.ErrCapacityExceeded):
		code = "capacity_exceeded"
	case errors.Is(err, utils.ErrSessionClosed):
		code = "session_closed"
	case errors.Is(err, utils.ErrSchemaViolation):
		code = "schema_violation"
	case errors.Is(err, utils.ErrConnectionFailure):
		code = "store_unavailable"
	case errors.Is(err, utils.ErrUpstreamFailure):
		code = "upstream_failure"
	}
	utils.RespondWithError(c, status, code, err.Error(), nil)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, utils.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrCapacityExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, utils.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, utils.ErrSchemaViolation):
		return http.StatusBadGateway
	case errors.Is(err, utils.ErrConnectionFailure),
		errors.Is(err, utils.ErrUpstreamFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
