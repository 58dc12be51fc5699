// Package parser translates query method names into query.ParsedQuery.
//
// The grammar:
//
//	<prefix>[Distinct][First<N>|Top<N>]By[<conditions>][OrderBy<keys>][AsOf]
//
//	prefix     find | read | get | query | search   → Find
//	           count                                → Count
//	           exists                               → Exists
//	           delete | remove                      → Delete
//	conditions <condition> (("And" | "Or") <condition>)*
//	condition  <Property>[<Keyword>]
//	keys       (<Property>[Asc|Desc])+
//
// # Tie-break Rules
//
// The rules below decide ambiguous names and are part of the contract:
//   - "By" splits at its first occurrence.
//   - A trailing "AsOf" is always a suffix, never part of a property name.
//   - "And"/"Or" are tokens only after position 0 and before an upper-case
//     letter or the end of the segment; the nearest token wins.
//   - Keywords are tried longest first (NotEquals before Equals, NotIn
//     before In); the first occurrence after position 0 counts. No keyword
//     means EQUALS.
//   - Property names are the text before the keyword with the first letter
//     lower-cased.
//
// Example:
//
//	findTop5ByStatusOrderByCreatedAtDesc
//	  → Find, limit 5, [status EQUALS], order [createdAt DESC]
package parser
