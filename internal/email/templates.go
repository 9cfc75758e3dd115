package email

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"
)

// templateKind selects one of the transactional templates.
type templateKind string

const (
	templateConfirmation templateKind = "confirmation"
	templateWelcome      templateKind = "welcome"
	templateGoodbye      templateKind = "goodbye"
)

type templateDef struct {
	Subject string
	Body    string
}

// Transactional copy per template kind and language. Subjects are plain
// strings; bodies are Liquid templates.
var templateSources = map[templateKind]map[string]templateDef{
	templateConfirmation: {
		"en": {
			Subject: "Please confirm your subscription",
			Body: `Hello,

Thank you for subscribing to our newsletter. Please confirm your subscription by clicking the link below:

{{ confirm_url }}

If you did not request this, you can ignore this email.`,
		},
		"fr": {
			Subject: "Veuillez confirmer votre inscription",
			Body: `Bonjour,

Merci de votre inscription à notre newsletter. Veuillez confirmer votre inscription en cliquant sur le lien ci-dessous :

{{ confirm_url }}

Si vous n'êtes pas à l'origine de cette demande, vous pouvez ignorer cet email.`,
		},
		"es": {
			Subject: "Por favor confirma tu suscripción",
			Body: `Hola,

Gracias por suscribirte a nuestro boletín. Confirma tu suscripción haciendo clic en el siguiente enlace:

{{ confirm_url }}

Si no solicitaste esto, puedes ignorar este correo.`,
		},
	},
	templateWelcome: {
		"en": {
			Subject: "Welcome to the newsletter",
			Body: `Hello,

Your subscription is confirmed. Welcome aboard!

You can unsubscribe at any time: {{ unsub_url }}`,
		},
		"fr": {
			Subject: "Bienvenue dans la newsletter",
			Body: `Bonjour,

Votre inscription est confirmée. Bienvenue !

Vous pouvez vous désinscrire à tout moment : {{ unsub_url }}`,
		},
		"es": {
			Subject: "Bienvenido al boletín",
			Body: `Hola,

Tu suscripción está confirmada. ¡Bienvenido!

Puedes darte de baja en cualquier momento: {{ unsub_url }}`,
		},
	},
	templateGoodbye: {
		"en": {
			Subject: "You have been unsubscribed",
			Body: `Hello,

You have been unsubscribed from our newsletter. You will not receive further emails from us.`,
		},
		"fr": {
			Subject: "Vous avez été désinscrit",
			Body: `Bonjour,

Vous avez été désinscrit de notre newsletter. Vous ne recevrez plus d'emails de notre part.`,
		},
		"es": {
			Subject: "Has sido dado de baja",
			Body: `Hola,

Has sido dado de baja de nuestro boletín. No recibirás más correos nuestros.`,
		},
	},
}

// TemplateEngine renders transactional templates with Liquid, caching parsed
// templates per kind/language pair.
type TemplateEngine struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{engine: liquid.NewEngine()}
}

// Render returns the subject and rendered body for a template in the given
// language. Unknown languages fall back to English.
func (e *TemplateEngine) Render(kind templateKind, language string, vars map[string]interface{}) (string, string, error) {
	langs, ok := templateSources[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown template: %s", kind)
	}
	def, ok := langs[language]
	if !ok {
		def = langs["en"]
	}

	tpl, err := e.parse(string(kind)+"/"+language, def.Body)
	if err != nil {
		return "", "", err
	}

	body, err := tpl.RenderString(vars)
	if err != nil {
		return "", "", fmt.Errorf("failed to render template %s: %w", kind, err)
	}
	return def.Subject, body, nil
}

func (e *TemplateEngine) parse(key, source string) (*liquid.Template, error) {
	if cached, ok := e.cache.Load(key); ok {
		return cached.(*liquid.Template), nil
	}
	tpl, err := e.engine.ParseTemplate([]byte(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", key, err)
	}
	e.cache.Store(key, tpl)
	return tpl, nil
}
