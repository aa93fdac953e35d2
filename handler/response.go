package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdfchat-be/types"
)

func statusFor(err error) int {
	e, ok := types.AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindInvalidInput:
		return http.StatusBadRequest
	case types.KindRetrieval, types.KindGeneration, types.KindEmbedding:
		return http.StatusBadGateway
	case types.KindIngestion:
		switch e.Code {
		case types.CodeEmbeddingFailed, types.CodeIndexWriteFailed:
			return http.StatusBadGateway
		case types.CodeExtractionFailed:
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

func errorCode(err error) string {
	if e, ok := types.AsError(err); ok {
		return e.Code
	}
	return "internal"
}

// writeError records err on the context and answers with the error envelope.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	msg := "internal server error"
	if e, ok := types.AsError(err); ok {
		msg = e.Message
	}
	c.AbortWithStatusJSON(statusFor(err), types.DataResponse{
		Status:  false,
		Message: msg,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, types.DataResponse{
		Status:  false,
		Message: msg,
	})
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, types.DataResponse{
		Status: true,
		Data:   data,
	})
}
