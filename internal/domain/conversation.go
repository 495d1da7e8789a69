package domain

import "time"

// Conversation agrupa mensajes de un usuario con un proveedor/modelo fijo.
// UpdatedAt avanza con cada mensaje agregado o renombre de título y es la
// clave de orden para el listado.
type Conversation struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	ModelProvider string    `json:"model_provider"`
	ModelName     string    `json:"model_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
