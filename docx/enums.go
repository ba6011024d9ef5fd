package docx

// Structural unit delimited by a pair of block markers.
// ENUM(paragraph, row, image)
type BlockKind int
