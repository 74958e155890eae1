// Package storage - Trie index implementation
//
// EDUCATIONAL NOTES:
// ------------------
// A trie (prefix tree) stores strings by spelling them out one character
// per level. Looking up "Bo" means following the 'B' child of the root and
// then the 'o' child of that node. The cost of a lookup depends on the
// length of the key, not on how many keys are stored.
//
// csvdb uses one trie per column to map a cell value to the ids of every
// row holding that value:
//
//   root
//   ├── 'A' ── 'n' ── 'n'  (word "Ann", ids [0])
//   └── 'B' ── 'o'         (word "Bo",  ids [1, 4])
//
// Each node keeps a fixed array of children for printable ASCII, which
// covers almost every cell value, plus a small map for any other code
// point (accents, CJK, emoji...).
//
// Nodes are never pruned. Deleting the last id of a word only clears its
// word flag, leaving the path in place for the next insert.

package storage

const (
	firstPrintable = 32  // ' '
	lastPrintable  = 126 // '~'
	alphabetSize   = lastPrintable - firstPrintable + 1
)

// Node is one trie node.
//
// Invariant: IsWord is true iff IDs is non-empty and Word is set.
type Node struct {
	children [alphabetSize]*Node
	extra    map[rune]*Node // code points outside printable ASCII

	IsWord bool
	IDs    []int
	Word   string
}

func (n *Node) child(r rune) *Node {
	if r >= firstPrintable && r <= lastPrintable {
		return n.children[r-firstPrintable]
	}
	return n.extra[r]
}

func (n *Node) addChild(r rune) *Node {
	if c := n.child(r); c != nil {
		return c
	}
	c := &Node{}
	if r >= firstPrintable && r <= lastPrintable {
		n.children[r-firstPrintable] = c
	} else {
		if n.extra == nil {
			n.extra = make(map[rune]*Node)
		}
		n.extra[r] = c
	}
	return c
}

// Trie maps words to the ids of the rows that hold them.
type Trie struct {
	root *Node
}

// NewTrie creates an empty trie.
func NewTrie() *Trie {
	return &Trie{root: &Node{}}
}

// Insert adds id under word. Inserting the same id twice stores it twice.
// Empty words are ignored.
func (t *Trie) Insert(id int, word string) {
	if word == "" {
		return
	}

	node := t.root
	for _, r := range word {
		node = node.addChild(r)
	}

	if node.IsWord {
		node.IDs = append(node.IDs, id)
		return
	}
	node.IsWord = true
	node.IDs = []int{id}
	node.Word = word
}

// walk returns the node at the end of word's path, or nil.
func (t *Trie) walk(word string) *Node {
	if word == "" {
		return nil
	}
	node := t.root
	for _, r := range word {
		node = node.child(r)
		if node == nil {
			return nil
		}
	}
	return node
}

// Find returns the word node for word, or nil when word was never inserted
// or has had all of its ids removed. A prefix of a stored word is not a hit.
func (t *Trie) Find(word string) *Node {
	node := t.walk(word)
	if node == nil || !node.IsWord {
		return nil
	}
	return node
}

// Update moves word's entry for oldID to newID.
func (t *Trie) Update(oldID, newID int, word string) {
	node := t.Find(word)
	if node == nil {
		return
	}
	node.IDs = removeID(node.IDs, oldID)
	node.IDs = append(node.IDs, newID)
}

// Delete removes one occurrence of id from word. When no ids remain the
// node stops being a word node.
func (t *Trie) Delete(id int, word string) {
	node := t.Find(word)
	if node == nil {
		return
	}
	node.IDs = removeID(node.IDs, id)
	if len(node.IDs) == 0 {
		clearWord(node)
	}
}

// DeleteAll removes every id stored under word.
func (t *Trie) DeleteAll(word string) {
	node := t.walk(word)
	if node == nil {
		return
	}
	clearWord(node)
}

func clearWord(n *Node) {
	n.IsWord = false
	n.IDs = nil
	n.Word = ""
}

// removeID removes the first occurrence of id, preserving order.
func removeID(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
