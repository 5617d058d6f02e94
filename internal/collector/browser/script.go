// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package browser

// extractScript runs inside the page and lifts review candidates out
// of the DOM. The storefront's markup churns, so five selector
// strategies are probed in priority order and the first that yields
// candidates wins. Returns an array of {id, title, content, rating,
// date, author} objects; rating is null when no star affordance reads.
const extractScript = `(() => {
	const seen = new Set();
	const results = [];

	const strategies = [
		() => [...document.querySelectorAll('article[aria-labelledby^="review-"]')],
		() => [...document.querySelectorAll('[class*="review"]')].filter(el =>
			(el.textContent || '').trim().length > 50 && el.children.length > 0),
		() => {
			const anchors = [
				...document.querySelectorAll('[aria-label*="star" i]'),
				...document.querySelectorAll('figure[role="img"]'),
			];
			const out = [];
			for (const a of anchors) {
				let el = a;
				for (let i = 0; i < 5 && el; i++) {
					el = el.parentElement;
					if (el && (el.textContent || '').trim().length > 50) { out.push(el); break; }
				}
			}
			return out;
		},
		() => [...document.querySelectorAll('[class*="review-header"]')]
			.map(el => el.parentElement).filter(Boolean),
		() => {
			const out = [];
			for (const stars of document.querySelectorAll('ol.stars[aria-label*="Star"]')) {
				let el = stars;
				for (let i = 0; i < 5 && el; i++) {
					el = el.parentElement;
					if (el && (el.textContent || '').trim().length > 50) { out.push(el); break; }
				}
			}
			return out;
		},
	];

	let candidates = [];
	for (const strategy of strategies) {
		try { candidates = strategy(); } catch (e) { candidates = []; }
		if (candidates.length > 0) break;
	}

	const text = el => el ? (el.textContent || '').trim() : '';

	const parseRating = el => {
		const starContainer = el.querySelector('[aria-label*="star" i], ol.stars, figure[role="img"]');
		if (starContainer) {
			const m = (starContainer.getAttribute('aria-label') || '').match(/(\d+)/);
			if (m) {
				const v = parseInt(m[1], 10);
				if (v >= 1 && v <= 5) return v;
			}
		}
		for (const labeled of el.querySelectorAll('[aria-label]')) {
			const m = (labeled.getAttribute('aria-label') || '').match(/(\d+)\s*[Ss]tars?/);
			if (m) {
				const v = parseInt(m[1], 10);
				if (v >= 1 && v <= 5) return v;
			}
		}
		const filled = el.querySelectorAll('.star.filled, [class*="star-filled"]').length;
		if (filled >= 1 && filled <= 5) return filled;
		return null;
	};

	const parseContent = el => {
		const selectors = [
			'[class*="review-body"] p', '[class*="review-content"]',
			'blockquote p', 'blockquote', 'p',
		];
		for (const sel of selectors) {
			const t = text(el.querySelector(sel));
			if (t.length >= 10) return t;
		}
		return text(el);
	};

	let synthetic = 0;
	for (const el of candidates) {
		const content = parseContent(el);
		if (content.length < 10) continue;
		const key = content.slice(0, 100);
		if (seen.has(key)) continue;
		seen.add(key);

		const labelledBy = el.getAttribute && el.getAttribute('aria-labelledby');
		const timeEl = el.querySelector('time[datetime]');
		results.push({
			id: labelledBy ? labelledBy : 'dom-' + (synthetic++),
			title: text(el.querySelector('h1, h2, h3, h4, [class*="title"]')),
			content: content,
			rating: parseRating(el),
			date: timeEl ? (timeEl.getAttribute('datetime') || '') : '',
			author: text(el.querySelector('p[class*="author"], [class*="author"]')),
		});
	}
	return results;
})()`

// scrollScript advances the review list by one step. Reviews may live
// in a modal with its own scrollable container; the script probes
// modal selectors first and falls back to scrolling the document.
// Returns true when a modal container was scrolled.
const scrollScript = `(() => {
	const modalSelectors = [
		'[role="dialog"]',
		'[aria-modal="true"]',
		'[role="dialog"] [class*="scroll"]',
		'dialog [class*="scroll"]',
	];
	for (const sel of modalSelectors) {
		for (const el of document.querySelectorAll(sel)) {
			const scrollable = el.scrollHeight > el.clientHeight;
			const holdsReviews = el.querySelector('article[aria-labelledby^="review-"]') !== null;
			const underDialog = el.closest('[role="dialog"], dialog') !== null;
			if (scrollable && (holdsReviews || underDialog)) {
				el.scrollTop += el.clientHeight * 0.8;
				return true;
			}
		}
	}
	window.scrollBy({ top: window.innerHeight * 1.5, behavior: 'smooth' });
	window.scrollTo(0, document.body.scrollHeight);
	return false;
})()`
