package mcpserver

// ChatmodeFormatContract describes the canonical chatmode document format
// that LLM consumers should follow when creating or updating modes.
const ChatmodeFormatContract = `# Ansuz Chatmode Format Contract

Every chatmode document stored in Ansuz MUST follow this structure.

## Structure

` + "```" + `markdown
---
description: One-line summary of the mode   # REQUIRED – shown in pickers and search
tools: ['codebase', 'search']                # OPTIONAL – tools granted to the mode
model: GPT-4.1                               # OPTIONAL – target model hint
---

Body text in standard Markdown: the instructions the assistant follows
while this mode is active.
` + "```" + `

## Rules

1. **The front matter fences are mandatory.** The opening ` + "`---`" + ` must be the
   first line of the file and a closing ` + "`---`" + ` line must follow the header.
2. **` + "`description`" + ` is required.** It is the primary display text everywhere.
3. **` + "`tools`" + `** is a bracketed, comma-separated list of quoted tool names.
   Names are opaque to Ansuz: the host assistant resolves them to
   capabilities. Order is preserved; avoid duplicates.
4. **` + "`model`" + `** is a free-text model name, also opaque to Ansuz.
5. **Unknown header keys are allowed** and passed through untouched.
6. **The body must be non-empty.** It is never interpreted by Ansuz; write it
   for the assistant that will follow it.
7. **File paths** end with ` + "`.chatmode.md`" + ` and use forward slashes. The mode
   name is the file-name stem (` + "`plan.chatmode.md`" + ` → ` + "`plan`" + `).
8. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `markdown
---
description: Generate an implementation plan before writing any code
tools: ['codebase', 'search', 'fetch']
model: Claude Sonnet 4
---

# Planning mode

You are in planning mode. Do not make any code edits. Produce a plan with
an overview, requirements, and implementation steps.
` + "```" + `
`
