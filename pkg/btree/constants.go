package btree

// NoPageID marks the absence of a child/sibling pointer.
const NoPageID int32 = -1

// nodeHeaderSize is the fixed portion common to both node encodings within
// the page payload: a one-byte kind tag plus a four-byte key count.
const nodeHeaderSize = 1 + 4

// leafHeaderSize adds the four-byte next-leaf pageId to nodeHeaderSize.
const leafHeaderSize = nodeHeaderSize + 4
