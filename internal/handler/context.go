package handler

type ContextKey string

var (
	NetworkSessionCtx ContextKey = "networkSession"
)
