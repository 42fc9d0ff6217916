package transport

type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type RegisterRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	Address  string `form:"address"  json:"address"`
}

// ProductRequest carries the editable product fields. Image is never bound
// from the body; it only comes from an upload.
type ProductRequest struct {
	Name        string  `form:"name"        json:"name"`
	Description string  `form:"description" json:"description"`
	Price       float64 `form:"price"       json:"price"`
	Stock       int     `form:"stock"       json:"stock"`
	Category    string  `form:"category"    json:"category"`
}

type CartItemRequest struct {
	Title string `form:"title" json:"title"`
	Price string `form:"price" json:"price"`
}
