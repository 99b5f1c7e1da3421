// Package agent runs a single pt-BR request through a tool-calling
// language model.
//
// The Agent sends the configured instructions and the user's utterance to
// a langchaingo llms.Model together with the calendar tools. Tool calls are
// executed through the tool registry and answered until the model replies
// with plain text, which is returned verbatim. When the date context is
// enabled, the current date and time are appended to the utterance so the
// model can resolve relative expressions itself.
package agent
