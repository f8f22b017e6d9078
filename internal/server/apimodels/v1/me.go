package v1

type GETMeResponse struct {
	ID             uint   `json:"id"`
	Email          string `json:"email"`
	RegisteredDate uint   `json:"regdate"`
	Trips          int    `json:"trips"`
}
