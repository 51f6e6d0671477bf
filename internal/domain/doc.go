// Package domain contains the core business entities, value objects, and
// domain logic of the application: conversations and chat messages,
// documents and their retrieval chunks, generation settings, and users.
// It represents the heart of the system, independent of any specific
// infrastructure or delivery mechanism.
package domain
