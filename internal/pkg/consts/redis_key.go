package consts

const (
	// TokenRevokedKey 已注销令牌签名黑名单前缀
	TokenRevokedKey = "auth:token:revoked:"
)
