package autotrader

// cardScript extracts up to %d listing cards from a search results page.
const cardScript = `
(function() {
	var limit = %d;
	var results = [];
	var seen = {};

	var cards = document.querySelectorAll('[data-testid="search-listing"], article[data-testid*="listing"], li[data-advert-id]');
	if (cards.length === 0) {
		cards = Array.prototype.map.call(document.querySelectorAll('a[href*="/car-details/"]'), function(a) {
			return a.closest('li') || a.closest('article') || a.parentElement;
		});
	}

	for (var i = 0; i < cards.length && results.length < limit; i++) {
		var card = cards[i];
		if (!card) continue;

		var link = card.querySelector('a[href*="/car-details/"]');
		var url = link ? link.href.split('?')[0] : '';
		if (!url || seen[url]) continue;
		seen[url] = true;

		var titleEl = card.querySelector('h3') || card.querySelector('[data-testid="search-listing-title"]');
		var title = titleEl ? titleEl.innerText.trim() : (link.innerText || '').trim();

		var text = card.innerText || '';
		var price = (text.match(/£\s*[\d,]+/) || [''])[0];
		var mileage = (text.match(/[\d,]+\s*miles/i) || [''])[0];
		var year = (text.match(/\b(19|20)\d{2}\b/) || [''])[0];

		var locEl = card.querySelector('[data-testid="search-listing-location"]');
		var location = locEl ? locEl.innerText.trim() : '';

		results.push({title: title, price: price, mileage: mileage, year: year, location: location, url: url});
	}
	return results;
})()
`

// detailScript extracts specification, description and equipment from a
// listing detail page.
const detailScript = `
(function() {
	var result = {
		title: '', price: '', mileage: '', year: '', make: '', model: '',
		engine: '', transmission: '', drivetrain: '', location: '',
		description: '', features: []
	};

	var h1 = document.querySelector('h1');
	if (h1) result.title = h1.innerText.trim();

	var priceEl = document.querySelector('[data-testid="advert-price"]');
	if (priceEl) result.price = priceEl.innerText.trim();

	var specs = document.querySelectorAll('dl dt, [data-testid="spec-label"]');
	for (var i = 0; i < specs.length; i++) {
		var label = specs[i].innerText.trim().toLowerCase();
		var valueEl = specs[i].nextElementSibling;
		var value = valueEl ? valueEl.innerText.trim() : '';
		if (label === 'mileage') result.mileage = value;
		else if (label === 'registration' || label === 'year') result.year = value;
		else if (label === 'make') result.make = value;
		else if (label === 'model') result.model = value;
		else if (label === 'engine' || label === 'engine size') result.engine = value;
		else if (label === 'gearbox' || label === 'transmission') result.transmission = value;
		else if (label === 'drivetrain' || label === 'drive type') result.drivetrain = value;
	}

	var locEl = document.querySelector('[data-testid="seller-location"]');
	if (locEl) result.location = locEl.innerText.trim();

	var descEl = document.querySelector('[data-testid="advert-description"]') ||
	             document.querySelector('section[aria-label*="escription"] p');
	if (descEl) result.description = descEl.innerText.trim().substring(0, 2000);

	var featureEls = document.querySelectorAll('[data-testid="features"] li, section[aria-label*="eatures"] li');
	for (var j = 0; j < featureEls.length; j++) {
		var f = featureEls[j].innerText.trim();
		if (f) result.features.push(f);
	}

	return result;
})()
`
