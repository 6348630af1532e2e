package middlewares

type ctxKey string

const (
	CtxRequestID ctxKey = "requestID"
	CtxUserID    ctxKey = "userID"
	CtxEmail     ctxKey = "email"
	CtxName      ctxKey = "name"
)
