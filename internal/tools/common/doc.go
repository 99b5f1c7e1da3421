// Package common holds the tool registry shared by the agent and the MCP
// tool surface. Every tool is declared once, as an mcp.Tool schema plus a
// handler decoding into a static argument struct, and is exposed both as a
// langchaingo function tool and as an MCP tool.
package common
