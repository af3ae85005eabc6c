package payment

import "github.com/gin-gonic/gin"

type IHandler interface {
	SubmitPayment(c *gin.Context)
	GetPayment(c *gin.Context)
}
