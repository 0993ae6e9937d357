package mcpserver

// LinkSyntaxGuide explains how wikilinks resolve and how periodic note
// names are formatted, for LLM consumers that write links into notes.
const LinkSyntaxGuide = `# wikivault Link and Periodic Note Guide

## Wikilinks

` + "```" + `markdown
[[Note]]                 links to the note named Note.md
[[folder/Note]]          prefers a Note.md whose path ends in folder/Note.md
[[Note|shown text]]      everything after the first | is display text only
[[Note#Heading]]         the heading is ignored when resolving
![[Note]]                embeds resolve like links
` + "```" + `

## Resolution rules

1. Everything from the first ` + "`" + `|` + "`" + ` on is dropped and the rest is trimmed.
   An empty result never resolves.
2. The target file name is the last path segment plus ` + "`" + `.md` + "`" + `, unless it
   already ends with ` + "`" + `.md` + "`" + `.
3. Every note with that exact name is a candidate.
4. Candidates whose full path ends with the link's folder structure win.
   Among equals the shortest full path wins; remaining ties keep listing order.

Write the shortest link that is unambiguous. ` + "`" + `[[Note]]` + "`" + ` is fine when only one
Note.md exists; add folders only to disambiguate.

## Periodic note names

| Period    | Default format | Example (2025-11-20) |
|-----------|----------------|----------------------|
| daily     | YYYY-MM-DD     | 2025-11-20           |
| weekly    | GGGG-[W]WW     | 2025-W47             |
| monthly   | YYYY-MM        | 2025-11              |
| quarterly | YYYY-[Q]Q      | 2025-Q4              |
| yearly    | YYYY           | 2025                 |

Text in square brackets is copied verbatim. Weekly names use ISO weeks, so
2021-01-01 belongs to 2020-W53. A vault may override the format, folder, and
template per period; use the periodic_note tool rather than guessing paths.
`
