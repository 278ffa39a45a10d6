package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
// Fields carries the search keys of a not-found lookup or the occupied values
// of a rejected write.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// --- Request / Response types ---

type createAccountRequest struct {
	Username   string   `json:"username"    validate:"required"`
	Email      string   `json:"email"       validate:"required,email"`
	Password   string   `json:"password"    validate:"required"`
	SecretWord string   `json:"secret_word" validate:"required"`
	Roles      []string `json:"roles"       validate:"required,min=1,dive,required"`
}

type updateAccountRequest struct {
	ID         int64    `json:"id"          validate:"required,gt=0"`
	Username   string   `json:"username"    validate:"required"`
	Email      string   `json:"email"       validate:"required,email"`
	Password   string   `json:"password"    validate:"required"`
	SecretWord string   `json:"secret_word" validate:"required"`
	Roles      []string `json:"roles"       validate:"required,min=1,dive,required"`
}

type accountResponse struct {
	ID         int64    `json:"id"`
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	SecretWord string   `json:"secret_word"`
	Roles      []string `json:"roles"`
}

type occupancyResponse struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	UsernameOccupied bool   `json:"username_occupied"`
	EmailOccupied    bool   `json:"email_occupied"`
	AnyOccupied      bool   `json:"any_occupied"`
}
