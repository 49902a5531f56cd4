package respond

type RegisterRespond struct {
	UserUUID string `json:"user_uuid"`
	TenantID string `json:"tenant_id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

type LoginRespond struct {
	Token    string `json:"token"`
	UserUUID string `json:"user_uuid"`
	TenantID string `json:"tenant_id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

type UserInfoRespond struct {
	UserUUID string `json:"user_uuid"`
	TenantID string `json:"tenant_id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	IsAdmin  bool   `json:"is_admin"`
}
