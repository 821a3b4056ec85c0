// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Length limits for post form fields.
const (
	maxTitleLen   = 300
	maxBodyLen    = 100_000
	maxExcerptLen = 1_000
	maxImageURLs  = 20
)

// ContactForm is the public contact form.
type ContactForm struct {
	Name    string `validate:"required,max=100"`
	Email   string `validate:"required,email,max=254"`
	Subject string `validate:"required,max=200"`
	Message string `validate:"required,max=5000"`
}

var validate = validator.New()

// contactMessages maps form fields to their form names and messages.
var contactMessages = map[string]struct{ key, required, tooLong string }{
	"Name":    {"name", "El nombre es obligatorio", "El nombre es demasiado largo"},
	"Email":   {"email", "El email es obligatorio", "El email es demasiado largo"},
	"Subject": {"subject", "El asunto es obligatorio", "El asunto es demasiado largo"},
	"Message": {"message", "El mensaje es obligatorio", "El mensaje es demasiado largo"},
}

// validateContact returns field errors keyed by form field name, or nil.
func validateContact(f ContactForm) map[string]string {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"message": "No se pudo validar el formulario"}
	}

	errs := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		m := contactMessages[fe.Field()]
		switch fe.Tag() {
		case "required":
			errs[m.key] = m.required
		case "email":
			errs[m.key] = "Introduce un email válido"
		default:
			errs[m.key] = m.tooLong
		}
	}
	return errs
}

// validatePostLengths checks the size limits the content layer leaves to
// the form.
func validatePostLengths(f postForm, images []string) map[string]string {
	errs := make(map[string]string)
	if utf8.RuneCountInString(f.Title) > maxTitleLen {
		errs["title"] = fmt.Sprintf("El título es demasiado largo (máximo %d caracteres)", maxTitleLen)
	}
	if utf8.RuneCountInString(f.Content) > maxBodyLen {
		errs["content"] = "El contenido es demasiado largo (máximo 100.000 caracteres)"
	}
	if utf8.RuneCountInString(f.Excerpt) > maxExcerptLen {
		errs["excerpt"] = fmt.Sprintf("El extracto es demasiado largo (máximo %d caracteres)", maxExcerptLen)
	}
	if len(images) > maxImageURLs {
		errs["images"] = fmt.Sprintf("Máximo %d imágenes por artículo", maxImageURLs)
	}
	return errs
}
