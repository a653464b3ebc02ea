package services

// Collectors exposed to the external test package.
var (
	BooksCreated  = booksCreated
	StatusUpdates = statusUpdates
	Rejections    = rejections
)
