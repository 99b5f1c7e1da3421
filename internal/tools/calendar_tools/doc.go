// Package calendar_tools provides the four calendar tools the agent calls:
// busca_eventos, criar_evento, atualizar_evento and deletar_evento.
//
// Each tool has a static argument struct and an mcp.Tool schema. Dates are
// given in natural pt-BR ("amanhã às 9h") or as ISO instants and are
// resolved by the timeparse package before the event payload is built.
// Tools hold no state between calls and are safe for concurrent use.
package calendar_tools
