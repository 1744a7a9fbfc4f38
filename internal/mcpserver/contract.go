package mcpserver

// PublishContract describes the canonical batch upload payload format that
// publishing clients must follow.
const PublishContract = `# Othala Publish Payload Contract

A publishing run is one session: create it, upload batches, then finish.

## Flow

1. ` + "`POST /api/sessions`" + ` with planned counts → returns the session id.
2. ` + "`POST /api/sessions/{id}/notes`" + ` and ` + "`POST /api/sessions/{id}/assets`" + `,
   repeated in any order and batch size. Upload routes may answer 429 with a
   ` + "`retry_after_ms`" + ` hint under load — back off and retry the same batch.
3. ` + "`POST /api/sessions/{id}/finish`" + ` with final counters and the full route
   inventory, or ` + "`POST /api/sessions/{id}/abort`" + `.

## Note payload

` + "```" + `json
{
  "notes": [
    {
      "id": "stable-page-id",
      "title": "Weekly standup",
      "slug": "weekly-standup",
      "folders": ["Meeting Notes", "2026"],
      "vault_path": "Meeting Notes/2026/Weekly standup.md",
      "markdown": "# Weekly standup\n...",
      "tags": ["meeting-notes"],
      "is_index": false,
      "folder_display_names": {"/meeting-notes/": "Meeting Notes"}
    }
  ],
  "folder_display_names": {"/meeting-notes/2026/": "2026"},
  "options": {"raw_html": false}
}
` + "```" + `

## Rules

1. **id is stable.** Re-uploading a note with the same id replaces the
   published page; a changed route leaves a redirect behind.
2. **slug** is lowercase alphanumerics separated by single hyphens. An
   invalid slug fails only that note, never the batch.
3. **folders** are the vault folder names in order; the server slugifies
   them into the route. A note with ` + "`is_index: true`" + ` becomes its folder's
   index page.
4. **markdown** is plain Markdown (GFM tables allowed). Resolve wikilinks
   and dataview blocks client-side before upload.
5. **Assets** are sent as ` + "`{\"path\": \"/img/x.png\", \"content\": \"<base64>\"}`" + `.
   Byte-identical content is deduplicated server-side by digest; a skipped
   asset appears in ` + "`skipped_assets`" + ` and costs no storage.
6. Every batch response accounts for every submitted item:
   published + skipped + errors equals the batch size.
`
