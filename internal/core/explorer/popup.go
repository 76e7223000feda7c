package explorer

import (
	"bytes"
	"html/template"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
)

// DefaultCategory labels listings without a category.
const DefaultCategory = "Imóvel"

var popupTmpl = template.Must(template.New("popup").Parse(`<div class="property-popup">
  <p class="property-popup__category">{{.Category}}</p>
  <div class="property-popup__body">
    <div class="property-popup__thumb"><img src="{{.Image}}" alt="{{.Title}}"></div>
    <div class="property-popup__info">
      <h4>{{.Title}}</h4>
      <p class="property-popup__place">{{.City}} - {{.State}}</p>
      <p class="property-popup__price">{{.Price}}</p>
    </div>
  </div>
</div>`))

type popupData struct {
	Category string
	Image    string
	Title    string
	City     string
	State    string
	Price    string
}

// PopupHTML renders the marker popup for a listing. Field values are escaped.
func PopupHTML(r domain.PropertyRecord) string {
	category := r.Category
	if category == "" {
		category = DefaultCategory
	}

	var buf bytes.Buffer
	// The template only reads string fields, so Execute cannot fail here.
	_ = popupTmpl.Execute(&buf, popupData{
		Category: category,
		Image:    r.FirstImage(),
		Title:    r.Title,
		City:     r.City,
		State:    r.State,
		Price:    FormatPrice(r.Price),
	})
	return buf.String()
}
