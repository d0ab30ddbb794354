package domain

// KeyPrefix namespaces every key this service writes to the datastore.
// Overridden from storage.key_prefix at startup.
var KeyPrefix = "stylist:"
