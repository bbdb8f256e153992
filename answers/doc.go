// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package answers validates raw answer payloads and puts them in canonical form.

Each question type accepts one payload shape:

	single_choice     option_ids with exactly one id
	multiple_choice   option_ids, no duplicates, count within [min, max]
	ranking           rankings, positions a permutation of 1..N
	likert            likert_value in [1, scale_points]
	numeric_estimate  numeric_value inside the range and on the step grid

Any other shape is a type mismatch and is rejected, never coerced. Choice
answers are ordered by option id, rankings by position, so two canonical
answers can be compared with Answer.Equal.
*/
package answers
