package agent

import (
	"fmt"
	"time"
)

// Defaults used when the corresponding Config field is zero.
const (
	DefaultName     = "Assistente de agenda"
	DefaultMaxSteps = 8
	DefaultZone     = "America/Sao_Paulo"
)

// DefaultInstructions is the system prompt of the calendar agent.
const DefaultInstructions = `Você é um assistente que gerencia a agenda do usuário no Google Calendar.
Use as ferramentas disponíveis para buscar, criar, atualizar e remover eventos.
Para atualizar ou remover um evento, use antes busca_eventos para encontrar o ID correto.
Passe datas e horários para as ferramentas em linguagem natural, como o usuário escreveu.
Se uma ferramenta retornar um erro, explique o problema ao usuário ou tente novamente com outros parâmetros.
Responda sempre em português do Brasil, de forma breve.`

// dateContextLayout renders the current instant as dd/mm/aaaa hh:mm:ss.
const dateContextLayout = "02/01/2006 15:04:05"

// Config describes an agent. It is built once at startup; New copies it,
// so later changes to the caller's value have no effect.
type Config struct {
	Name         string
	Instructions string

	// Provider and Model select the language model. Provider is one of the
	// Provider* constants.
	Provider string
	Model    string

	// Temperature is passed to the model when positive.
	Temperature float64

	// MaxSteps bounds the number of model calls in one run.
	MaxSteps int

	// DateContext appends the current date and time to every utterance.
	DateContext bool

	// Location is the zone the date context is rendered in.
	Location *time.Location
}

// withDefaults fills zero fields.
func (c Config) withDefaults() (Config, error) {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Instructions == "" {
		c.Instructions = DefaultInstructions
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.MaxSteps < 0 {
		return c, fmt.Errorf("max steps must be positive, got %d", c.MaxSteps)
	}
	if c.Location == nil {
		loc, err := time.LoadLocation(DefaultZone)
		if err != nil {
			return c, fmt.Errorf("failed to load time zone %s: %w", DefaultZone, err)
		}
		c.Location = loc
	}
	return c, nil
}
