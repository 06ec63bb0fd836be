// Package processor splits formatted chat messages into translatable
// segments and reassembles them around the translations.
package processor

import "github.com/ZaguanLabs/chatlai"

// ContentProcessor is an alias to the main package interface.
type ContentProcessor = chatlai.ContentProcessor

// TextNode is an alias to the main package type.
type TextNode = chatlai.TextNode
