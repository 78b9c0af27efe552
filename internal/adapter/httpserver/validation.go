package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
)

// ValidationError describes one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64,excludesall=:."`
	Password string `json:"password" validate:"required,max=256"`
}

type generateRequest struct {
	InputScript        string `json:"inputScript" validate:"required,max=5000"`
	Voice              string `json:"voice" validate:"required,voice"`
	Format             string `json:"format" validate:"omitempty,oneof=mp3 wav"`
	VoiceAffect        string `json:"voiceAffect" validate:"max=1000"`
	Tone               string `json:"tone" validate:"max=1000"`
	Emotion            string `json:"emotion" validate:"max=1000"`
	Pacing             string `json:"pacing" validate:"max=1000"`
	Pronunciation      string `json:"pronunciation" validate:"max=1000"`
	Pauses             string `json:"pauses" validate:"max=1000"`
	Personality        string `json:"personality" validate:"max=1000"`
	Delivery           string `json:"delivery" validate:"max=1000"`
	CustomInstructions string `json:"customInstructions" validate:"max=1000"`
}

func (g generateRequest) direction() domain.VoiceDirection {
	return domain.VoiceDirection{
		VoiceAffect:        g.VoiceAffect,
		Tone:               g.Tone,
		Emotion:            g.Emotion,
		Pacing:             g.Pacing,
		Pronunciation:      g.Pronunciation,
		Pauses:             g.Pauses,
		Personality:        g.Personality,
		Delivery:           g.Delivery,
		CustomInstructions: g.CustomInstructions,
	}
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// updateClipRequest keeps categoryId raw so that an explicit null (clear)
// can be told apart from an absent field (keep).
type updateClipRequest struct {
	Name       *string         `json:"name" validate:"omitempty,max=100"`
	CategoryID json.RawMessage `json:"categoryId"`
}

func (u updateClipRequest) toUpdate() (domain.ClipUpdate, error) {
	upd := domain.ClipUpdate{Name: u.Name}
	if len(u.CategoryID) > 0 {
		var id *string
		if err := json.Unmarshal(u.CategoryID, &id); err != nil {
			return domain.ClipUpdate{}, fmt.Errorf("%w: categoryId must be a string or null", domain.ErrInvalidArgument)
		}
		upd.CategoryID = &id
	}
	return upd, nil
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New(validator.WithRequiredStructEnabled())
		vld.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = vld.RegisterValidation("voice", func(fl validator.FieldLevel) bool {
			return domain.Voice(strings.ToLower(fl.Field().String())).Valid()
		})
	})
	return vld
}

// validateStruct runs the struct tags and returns ErrInvalidArgument plus
// per-field details.
func validateStruct(v interface{}) ([]ValidationError, error) {
	err := getValidator().Struct(v)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Code:    strings.ToUpper(fe.Tag()),
			Message: fieldMessage(fe),
		})
	}
	return out, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, out[0].Message)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "voice":
		return fe.Field() + " is not a supported voice"
	default:
		return fe.Field() + " is invalid"
	}
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) ([]ValidationError, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		return nil, fmt.Errorf("%w: content-type must be application/json", domain.ErrInvalidArgument)
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: request body is empty", domain.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err)
	}
	return validateStruct(dst)
}

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,100}$`)

// ValidateID checks a path identifier before it reaches the repository.
func ValidateID(id string) error {
	if !validID.MatchString(id) {
		return fmt.Errorf("%w: invalid id", domain.ErrInvalidArgument)
	}
	return nil
}
