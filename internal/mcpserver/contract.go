package mcpserver

// StorageLayout describes how directory entries map to files. It is served
// as the flexdir://storage-layout resource.
const StorageLayout = `# flexdir Storage Layout

Every directory type stores its entries in one of two ways.

## Whole file (storage type ` + "`file`" + `)

One JSON or YAML file maps entry keys to their fields:

` + "```" + `json
{
  "ada": {"name": "Ada", "email": "ada@example.com"},
  "bob": {"name": "Bob"}
}
` + "```" + `

Saving rewrites the whole file.

## Folder (storage type ` + "`folder`" + `)

The storage path holds a ` + "`{key}`" + ` placeholder.

- ` + "`data/contacts/{key}/item.md`" + ` keeps one folder per entry. The entry
  file holds the Markdown body (field ` + "`markdown`" + `) and the multilingual
  fields in its YAML header. Every other field lives in
  ` + "`frontmatter.yaml`" + ` next to it. Other files in the folder are media and
  show up in the read-only ` + "`media`" + ` field.
- ` + "`data/faq/{key}.yaml`" + ` keeps one file per entry in a shared folder.

Language variants sit next to the default file with the language code
before the extension: ` + "`item.de.md`" + `, ` + "`item.fr.md`" + `.

## Keys

- A type with a ` + "`key_field`" + ` uses that field's value as the key. Changing
  the value renames the entry.
- Otherwise new entries get a random 16-character key.
- Keys never contain ` + "`/`" + ` or ` + "`\\`" + `, never start with a dot and never end
  in a configured language code such as ` + "`.de`" + `.

## Saving

- ` + "`save_entry`" + ` with a key merges the given fields into the stored entry.
  Pass the ` + "`checksum`" + ` you read to avoid overwriting someone else's change.
- Every save is written to disk immediately.
`
